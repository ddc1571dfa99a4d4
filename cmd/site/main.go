package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	starfish "github.com/rodneyosodo/starfish"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/run"
	"github.com/rodneyosodo/starfish/site"
)

const pathEnv = ".env"

type envConfig struct {
	LogLevel     string `env:"SITE_LOG_LEVEL"     envDefault:"info"`
	Name         string `env:"SITE_NAME"`
	DatasetPath  string `env:"SITE_DATASET_PATH,notEmpty"`
	ArtifactsDir string `env:"SITE_ARTIFACTS_DIR" envDefault:"artifacts"`
	RunFile      string `env:"SITE_RUN_FILE,notEmpty"`
	Sequence     int    `env:"SITE_SEQUENCE"      envDefault:"1"`
	Round        int    `env:"SITE_ROUND"         envDefault:"1"`
}

func main() {
	ctx := context.Background()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	runCfg, err := starfish.LoadConfig(cfg.RunFile)
	if err != nil {
		logger.Error("failed to load run definition", slog.String("error", err.Error()))

		return
	}

	store, err := artifact.NewFSStore(cfg.ArtifactsDir)
	if err != nil {
		logger.Error("failed to initialize artifact store", slog.String("error", err.Error()))

		return
	}

	s := site.NewSite(cfg.Name)
	ref := run.RoundRef{Sequence: cfg.Sequence, Round: cfg.Round}
	source := site.CSVSource{Path: cfg.DatasetPath}

	ctrl, err := site.NewController(s, runCfg.Run, ref, source, store, logger)
	if err != nil {
		logger.Error("failed to initialize site controller", slog.String("error", err.Error()))

		return
	}

	if err := ctrl.RunRound(ctx); err != nil {
		logger.Error("round failed",
			slog.String("site", s.ID),
			slog.Int("sequence", ref.Sequence),
			slog.Int("round", ref.Round),
			slog.String("error", err.Error()),
		)

		return
	}

	logger.Info("round complete",
		slog.String("site", s.ID),
		slog.Int("sequence", ref.Sequence),
		slog.Int("round", ref.Round),
	)
}
