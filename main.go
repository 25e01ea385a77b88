package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/level.report/internal/api"
	"github.com/banshee-data/level.report/internal/config"
	"github.com/banshee-data/level.report/internal/db"
	"github.com/banshee-data/level.report/internal/level"
	"github.com/banshee-data/level.report/internal/sweepmux"
	"github.com/banshee-data/level.report/internal/units"
	"github.com/banshee-data/level.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with a simulated sensor")
	listen     = flag.String("listen", ":8080", "Listen address")
	serialPort = flag.String("serial", "/dev/ttySC1", "Serial port of the ranging module")
	dbPath     = flag.String("db", "level_data.db", "Path to the SQLite database")
	configPath = flag.String("config", "", "Path to a tuning config JSON file (optional)")
	unitFlag   = flag.String("units", units.CM, "Distance units for API output and logs (m, cm, mm)")
)

// sessionRecord is the configuration snapshot stored with each session.
type sessionRecord struct {
	Sensor     level.SensorConfig     `json:"sensor"`
	Processing level.ProcessingConfig `json:"processing"`
}

// handleSweepLine parses one serial line, advances the detector, publishes
// the result, and persists detections from emitted mean sweeps.
func handleSweepLine(proc *level.Processor, database *db.DB, latest *latestResult, sessionID, line string) error {
	_, sweep, err := parseSweepLine(line)
	if err != nil {
		if err == errNotSweep {
			log.Printf("module: %s", line)
			return nil
		}
		return err
	}

	result, err := proc.Advance(sweep)
	if err != nil {
		return fmt.Errorf("failed to process sweep: %w", err)
	}
	latest.Store(result)

	if !result.Emitted {
		return nil
	}

	for i, pk := range result.Peaks {
		kind := db.KindMain
		if i > 0 {
			kind = db.KindMinor
		}
		distanceM := result.PeakDistancesM[i]
		amplitude := result.LastMeanSweep[pk]
		if err := database.RecordDetection(sessionID, result.SweepIndex, kind, distanceM, amplitude); err != nil {
			log.Printf("failed to record %s detection: %v", kind, err)
		}
	}

	// the first-above trace gains a point on the current sweep when the mean
	// sweep crossed the threshold anywhere
	if n := len(result.FirstAboveHistory); n > 0 {
		if last := result.FirstAboveHistory[n-1]; last.TimeOffsetS == 0 {
			if err := database.RecordDetection(sessionID, result.SweepIndex, db.KindFirstAbove, last.DistanceM, 0); err != nil {
				log.Printf("failed to record first-above detection: %v", err)
			}
		}
	}

	if len(result.PeakDistancesM) > 0 {
		log.Printf("Detected level: %.1f %s (sweep %d, %d peaks)",
			units.ConvertDistance(result.PeakDistancesM[0], *unitFlag), *unitFlag,
			result.SweepIndex, len(result.Peaks))
	}

	return nil
}

// makeDevFrame synthesizes one framed envelope sweep: a noise floor with a
// gaussian pulse well above the fixed threshold at 60% of the range, so dev
// mode produces steady detections.
func makeDevFrame(sensor level.SensorConfig) []byte {
	var b strings.Builder
	b.WriteString("S,0")
	center := 0.6 * float64(sensor.DataLength)
	width := float64(sensor.DataLength) / 40
	for i := 0; i < sensor.DataLength; i++ {
		d := (float64(i) - center) / width
		amplitude := 1000 + 2500*math.Exp(-d*d/2)
		fmt.Fprintf(&b, ",%.0f", amplitude)
	}
	b.WriteString("\n")
	return []byte(b.String())
}

func main() {
	flag.Parse()

	log.Printf("level.report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*unitFlag) {
		log.Fatalf("invalid units %q (valid: %s)", *unitFlag, units.GetValidUnitsString())
	}

	// fall back to the checked-in defaults file when present
	if *configPath == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			*configPath = config.DefaultConfigPath
		}
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	sensorCfg := tuning.SensorConfig()
	procCfg, err := tuning.ProcessingConfig()
	if err != nil {
		log.Fatalf("invalid tuning config: %v", err)
	}

	alerts := level.CheckSensorConfig(sensorCfg, procCfg)
	for _, a := range alerts {
		log.Printf("config %s: %s: %s", a.Severity, a.Field, a.Message)
	}
	if level.HasBlocking(alerts) {
		log.Fatal("configuration has blocking errors, refusing to start")
	}

	proc, err := level.NewProcessor(sensorCfg, procCfg)
	if err != nil {
		log.Fatalf("failed to create processor: %v", err)
	}

	var m sweepmux.SweepMuxInterface
	if *devMode {
		m = sweepmux.NewMockSweepMux(makeDevFrame(sensorCfg), sensorCfg.UpdateRateHz)
	} else {
		m, err = sweepmux.NewRealSweepMux(*serialPort)
		if err != nil {
			log.Fatalf("failed to open sensor port: %v", err)
		}
	}
	defer m.Close()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	configJSON, err := json.Marshal(sessionRecord{Sensor: sensorCfg, Processing: procCfg})
	if err != nil {
		log.Fatalf("failed to marshal session config: %v", err)
	}
	sessionID, err := database.StartSession(string(configJSON))
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	log.Printf("started session %s", sessionID)

	latest := &latestResult{}

	// Create a wait group for the HTTP server, serial monitor, and sweep
	// handler routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the sensor port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Initialize(); err != nil {
			log.Printf("failed to initialize module: %v", err)
		}
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor sensor port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the sensor port lines and feed them to the detector
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line := <-c:
				if err := handleSweepLine(proc, database, latest, sessionID, line); err != nil {
					log.Printf("error handling sweep: %v", err)
				}
			case <-ctx.Done():
				log.Printf("sweep routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the API handlers under /api/
		apiMux := api.NewServer(proc, latest, database, *unitFlag).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		// module command passthrough, restricted to the allow list
		mux.HandleFunc("/api/command", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			command := r.URL.Query().Get("cmd")
			if !isAllowedCommand(command) {
				http.Error(w, fmt.Sprintf("command %q not allowed", command), http.StatusBadRequest)
				return
			}
			if err := m.SendCommand(command); err != nil {
				http.Error(w, fmt.Sprintf("failed to send command: %v", err), http.StatusInternalServerError)
				return
			}
			fmt.Fprintln(w, "ok")
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LogRequests(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
