// Command sl-tx transmits a continuous stream of LTE sidelink subframes
// through a radio backend.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/logutils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twardokus/sidelink"
	"golang.org/x/sync/errgroup"
)

var verbosity countFlag

var (
	configFile       *string  = flag.String("config", "./sl-tx.ini", "Configuration file")
	prbArg           *int     = flag.Int("p", 50, "Number of physical resource blocks (6, 15, 25, 50, 75 or 100)")
	sidelinkIDArg    *int     = flag.Int("c", 0, "Sidelink identity")
	tmArg            *int     = flag.Int("t", 4, "Sidelink transmission mode (1 to 4)")
	extendedCPArg    *bool    = flag.Bool("e", false, "Use extended cyclic prefix")
	deviceArg        *string  = flag.String("d", "null", "RF device name or device file profile")
	deviceArgsArg    *string  = flag.String("a", "", "RF device arguments, key=value[,key=value]")
	gainArg          *float64 = flag.Float64("g", 50, "TX gain in dB")
	frequencyArg     *float64 = flag.Float64("f", 5.92e9, "TX frequency in Hz")
	antennasArg      *int     = flag.Int("A", 1, "Number of TX antennas")
	standardRatesArg *bool    = flag.Bool("r", false, "Use standard LTE sample rates")
	subframesArg     *int     = flag.Int("n", 0, "Number of subframes to transmit, 0 for no limit")
	seedArg          *int64   = flag.Int64("s", 0, "Random payload seed, 0 to seed from the clock")
	helpArg          *bool    = flag.Bool("h", false, "Print arguments")
)

func init() {
	flag.Var(&verbosity, "v", "Verbose logging, repeat for more")
}

func main() {
	flag.Parse()

	if *helpArg {
		flag.Usage()
		return
	}
	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Bad configuration: %v", err)
	}
	setupLogging(cfg)
	os.Exit(transmit(cfg))
}

// transmit runs the loop described by cfg and returns the process exit
// code. The event log and payload listener are closed before it returns.
func transmit(cfg config) int {
	if cfg.eventLogFile != nil {
		defer cfg.eventLogFile.Close()
	}

	seed := cfg.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var payload sidelink.PayloadSource = sidelink.NewRandomSource(seed)
	if cfg.payloadListen != "" {
		udp, err := sidelink.NewUDPSource(cfg.payloadListen, payload)
		if err != nil {
			log.Printf("[ERROR] Error creating payload listener: %v", err)
			return 1
		}
		defer udp.Close()
		payload = udp
	}

	loop := sidelink.NewLoop(sidelink.LoopConfig{
		Cell:          cfg.cell,
		Scheduling:    cfg.scheduling,
		Scrambling:    cfg.scrambling,
		Device:        cfg.device,
		TXGain:        cfg.txGain,
		TXFrequency:   cfg.txFrequency,
		StandardRates: cfg.standardRates,
		MaxSubframes:  cfg.maxSubframes,
		Payload:       payload,
		EventLog:      cfg.eventLogger,
	}, nil)

	if err := run(loop, cfg.metricsAddr); err != nil {
		log.Printf("[ERROR] %v", err)
		return 1
	}
	return 0
}

// run drives the loop until it finishes, a signal arrives or the metrics
// server fails.
func run(loop *sidelink.Loop, metricsAddr string) error {
	g, ctx := errgroup.WithContext(context.Background())

	var srv *http.Server
	if metricsAddr != "" {
		sidelink.RegisterMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux}
		g.Go(func() error {
			log.Printf("[INFO] Serving metrics on %s", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)
	done := make(chan struct{})
	go func() {
		select {
		case <-signalChan:
			log.Print("[DEBUG] Received an interrupt, stopping...")
		case <-ctx.Done():
		case <-done:
		}
		loop.Stop()
	}()

	g.Go(func() error {
		defer close(done)
		err := loop.Run()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("[DEBUG] Error shutting down metrics server: %v", err)
			}
		}
		return err
	})
	return g.Wait()
}

func setupLogging(c config) {
	var err error
	minLogLevel := c.logLevel
	logWriter := os.Stderr

	if c.logRoot != "" {
		logWriter, err = os.OpenFile(c.logPath+"/"+c.logRoot+".log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Error opening log output, exiting: %v", err)
		}
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: logutils.LogLevel(minLogLevel),
		Writer:   logWriter,
	}
	log.SetOutput(filter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Print("[DEBUG] Debug is on")
}
