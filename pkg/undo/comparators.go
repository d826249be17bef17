package undo

// compareSize orders two (size, fxid) pairs by descending size, tiebreaking
// on ascending fxid. Larger requests sort first because they are expensive
// and should be started early; the fxid tiebreak exists only to give the
// index a total order, since sizes can coincide even though fxids can't.
func compareSize(sizeA uint64, fxidA FullTransactionId, sizeB uint64, fxidB FullTransactionId) int {
	if sizeA != sizeB {
		if sizeA > sizeB {
			return -1
		}
		return 1
	}
	return compareFxid(fxidA, fxidB)
}

// compareRetryTimeKeys orders two (retryTime, fxid) pairs by ascending
// retryTime, tiebreaking on ascending fxid.
func compareRetryTimeKeys(retryA int64, fxidA FullTransactionId, retryB int64, fxidB FullTransactionId) int {
	if retryA != retryB {
		if retryA < retryB {
			return -1
		}
		return 1
	}
	return compareFxid(fxidA, fxidB)
}
