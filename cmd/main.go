package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/flowplan"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/handlers"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/logger"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/repository"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/server"
	"github.com/zahiraIi/MFC-Calculator-Tool/internal/service"

	"github.com/spf13/viper"
)

const shutdownGrace = 10 * time.Second

func main() {
	// load config.yml before the logger so log_level applies from the start
	cfgErr := loadConfig()
	log := logger.Get(viper.GetString("log_level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	services := service.NewService(repos, serviceConfig(log))
	apiHandler := handlers.NewHandler(services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, log)
}

func loadConfig() error {
	viper.SetDefault("log_level", logger.InfoLevel)
	viper.SetDefault("port", "8080")
	viper.SetDefault("db.path", ":memory:")

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration. The default
// in-memory store matches the single-session, recompute-on-read model; set
// db.path to a file to keep the session and event log across restarts.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == ":memory:" {
		log.Infow("using in-memory sqlite; session and events are lost on exit")
	}
	return repository.InitDB(dbPath)
}

// serviceConfig assembles the planner defaults from configuration, falling
// back to the built-in calibration when the file does not override it.
func serviceConfig(log *logger.Logger) service.Config {
	cal := flowplan.DefaultCalibration()
	viper.SetDefault("calibration.humidity_slope", cal.HumiditySlope)
	viper.SetDefault("calibration.humidity_intercept", cal.HumidityIntercept)
	viper.SetDefault("calibration.ch2o_factor", cal.CH2OCalibrationFactor)

	concs, dropped := flowplan.ParseConcentrations(viper.GetString("defaults.concentrations"))
	if len(dropped) > 0 {
		log.Infow("ignoring invalid default concentrations", "tokens", dropped)
	}

	return service.Config{
		LabTempC: viper.GetFloat64("lab.temperature_c"),
		DefaultSession: mfccalc.Session{
			ID: 1,
			Inputs: mfccalc.InputParameters{
				TotalFlow:      viper.GetFloat64("defaults.total_flow"),
				TargetHumidity: viper.GetFloat64("defaults.target_humidity"),
				CH2OSourceConc: viper.GetFloat64("defaults.ch2o_source_conc"),
				Concentrations: concs,
			},
			Timings: mfccalc.TimingParameters{
				BaselineDuration:  viper.GetInt("defaults.baseline_min"),
				ExposureDuration:  viper.GetInt("defaults.exposure_min"),
				StabilizationTime: viper.GetInt("defaults.stabilization_min"),
			},
			Calibration: mfccalc.CalibrationConstants{
				HumiditySlope:         viper.GetFloat64("calibration.humidity_slope"),
				HumidityIntercept:     viper.GetFloat64("calibration.humidity_intercept"),
				CH2OCalibrationFactor: viper.GetFloat64("calibration.ch2o_factor"),
			},
		},
	}
}

// runHTTPServer starts serving in a goroutine; main stays on the signal wait.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		// ErrServerClosed is the normal result of a graceful shutdown.
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then drains the server
// within shutdownGrace.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
