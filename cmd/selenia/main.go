// Command selenia is the single binary implementing both the master and
// worker roles: a quick CLI dispatch for start/stop/reload/benchmark/
// plugin/locale, then the master's spawn-and-supervise loop or, under
// SWS_ROLE=worker, the request-serving engine itself.
//
// Grounded on original_source/selenia_server/src/main.rs's subcommand
// dispatch and fork/exec reload loop, translated into pkg/selenia/procmgr's
// re-exec model, and on the teacher's bolt/examples/hello/main.go for the
// minimal top-level shape of a single-file entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/config"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/engine"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/logging"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/procmgr"
)

const pidFile = "sws.pid"

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		if handled := dispatchSubcommand(args[0], args[1:]); handled {
			return
		}
	}

	cfgPath := "config.yaml"
	if len(args) > 0 {
		cfgPath = args[0]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "selenia: config load failure: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "selenia: config validation error: %v\n", err)
		os.Exit(1)
	}

	if procmgr.IsWorker() {
		runWorker(cfg)
		return
	}
	runMaster(cfg, cfgPath)
}

// dispatchSubcommand handles the one-shot CLI surface that does not start
// a server: stop/reload signal the running master by pidfile, and
// benchmark/plugin/locale only print a short informational hint.
func dispatchSubcommand(cmd string, rest []string) bool {
	log := logging.Default().WithPrefix("cli")
	switch cmd {
	case "start":
		return false // fall through to normal master/worker flow
	case "stop":
		if err := procmgr.SignalPid(pidFile, syscall.SIGTERM); err != nil {
			log.Errorf("stop: %v", err)
			os.Exit(1)
		}
		fmt.Println("sent SIGTERM to running master")
		return true
	case "reload":
		if err := procmgr.SignalPid(pidFile, syscall.SIGHUP); err != nil {
			log.Errorf("reload: %v", err)
			os.Exit(1)
		}
		fmt.Println("sent SIGHUP to running master")
		return true
	case "benchmark":
		fmt.Println("benchmark: run the engine package's benchmarks with `go test -bench .` instead")
		return true
	case "plugin":
		fmt.Println("plugin: register filters at build time via pkg/selenia/plugin.Register in an init()")
		return true
	case "locale":
		fmt.Println("locale: register string tables at build time via pkg/selenia/locale.Register in an init()")
		return true
	default:
		return false // unrecognized first argument is treated as a config path
	}
}

// runWorker builds the engine from cfg and serves until terminated, per
// spec.md §6's worker responsibilities.
func runWorker(cfg *config.Config) {
	log := logging.Default().WithPrefix("worker")

	ecfg := engine.DefaultConfig(cfg.RootDir)
	ecfg.Locale = cfg.Locale
	if cfg.TLS != nil {
		ecfg.TLSCert = cfg.TLS.Cert
		ecfg.TLSKey = cfg.TLS.Key
	}

	eng := engine.New(ecfg)
	for _, addr := range cfg.Listen {
		if err := eng.Listen(addr); err != nil {
			log.Errorf("listen %s: %v", addr, err)
			os.Exit(1)
		}
		log.Infof("listening on %s", addr)
	}

	if err := procmgr.DropNetBindCapability(); err != nil {
		log.Warnf("capability drop failed: %v", err)
	}
	if err := procmgr.InstallDefault(); err != nil {
		log.Warnf("seccomp install failed: %v", err)
	}

	sig := procmgr.NewSignals()
	defer sig.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for !sig.ShouldTerminate() {
			time.Sleep(200 * time.Millisecond)
		}
		cancel()
	}()

	eng.Run(ctx)
	log.Infof("worker exiting")
}

// runMaster spawns one worker per available CPU, re-spawning the whole
// generation on SIGHUP/config-file change and forwarding SIGTERM to the
// current generation before exiting, per spec.md §4.M.
func runMaster(cfg *config.Config, cfgPath string) {
	log := logging.Default().WithPrefix("master")

	if err := procmgr.WritePidFile(pidFile); err != nil {
		log.Warnf("could not write pidfile %s: %v", pidFile, err)
	}

	workerCount := runtime.NumCPU()
	log.Infof("master pid %d starting %d workers", os.Getpid(), workerCount)

	pool, err := procmgr.Spawn(workerCount, cfgPath)
	if err != nil {
		log.Errorf("spawn workers: %v", err)
		os.Exit(1)
	}

	reloadCh := make(chan struct{}, 1)
	watcher, err := config.WatchFile(cfgPath, func(*config.Config) {
		select {
		case reloadCh <- struct{}{}:
		default:
		}
	}, func(err error) {
		log.Warnf("config watch: %v", err)
	})
	if err == nil {
		defer watcher.Close()
	} else {
		log.Warnf("config hot-reload watch unavailable: %v", err)
	}

	sig := procmgr.NewSignals()
	defer sig.Stop()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if sig.ShouldTerminate() {
			pool.SignalAll(syscall.SIGTERM)
			break
		}

		reloadRequested := sig.TakeReloadRequest()
		select {
		case <-reloadCh:
			reloadRequested = true
		default:
		}
		if reloadRequested {
			log.Infof("hot-reload requested, spawning new worker generation")
			newPool, err := procmgr.Spawn(workerCount, cfgPath)
			if err != nil {
				log.Errorf("reload spawn failed, keeping old generation: %v", err)
			} else {
				pool.SignalAll(syscall.SIGTERM)
				pool = newPool
			}
		}

		pool.Reap()
		<-ticker.C
	}

	log.Infof("master exiting")
}
