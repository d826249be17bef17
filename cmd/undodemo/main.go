package main

import (
	"flag"
	"sync"

	"github.com/icecanedb/undorequest/pkg/checkpoint"
	"github.com/icecanedb/undorequest/pkg/clock"
	"github.com/icecanedb/undorequest/pkg/common"
	"github.com/icecanedb/undorequest/pkg/undo"

	log "github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file overriding the defaults")
)

func main() {
	flag.Parse()
	conf := common.NewDefaultConfig()

	if *configPath != "" {
		conf.LoadFromFile(*configPath)
	}

	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store := checkpoint.NewStore(conf.CheckpointPath)
	mgr := undo.Initialize(&sync.Mutex{}, clock.RealClock, conf.Capacity, conf.SoftLimit)

	if blob, err := store.Read(); err != nil {
		log.Fatalf("reading checkpoint: %v", err)
	} else if len(blob) > 0 {
		if err := mgr.Restore(blob); err != nil {
			log.Fatalf("restoring checkpoint: %v", err)
		}
		log.Info("undodemo: restored manager state from checkpoint")
	}

	fxid := undo.FullTransactionId{Epoch: 0, Base: 100}
	req := mgr.Register(fxid, undo.Oid(1))
	if req == nil {
		log.Fatal("undodemo: capacity exhausted on a fresh manager, this should not happen")
	}

	mgr.Finalize(req, 4096, undo.InvalidUndoPtr, 10, undo.InvalidUndoPtr, 20)
	if !mgr.PerformInBackground(req, false) {
		log.Fatal("undodemo: expected background promotion to succeed under headroom")
	}

	worker := mgr.Next(undo.InvalidOid, false)
	if worker == nil {
		log.Fatal("undodemo: expected Next to hand back the request we just listed")
	}
	mgr.Unregister(worker)

	if err := store.Write(mgr.Serialize()); err != nil {
		log.Fatalf("writing checkpoint: %v", err)
	}

	log.WithFields(log.Fields{"utilization": mgr.Utilization()}).Info("undodemo: done")
}
