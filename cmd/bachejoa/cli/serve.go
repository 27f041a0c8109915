package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/642studio/bachejoa/internal/objectstore"
	"github.com/642studio/bachejoa/internal/server"
)

const banner = `
 ___          _          _
| _ ) __ _ __| |_  ___  (_)___  __ _
| _ \/ _' / _| ' \/ -_) | / _ \/ _' |
|___/\__,_\__|_||_\___|_/ \___/\__,_|
                      |__/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Bachejoa API server",
		Long:  "Start the HTTP server for accounts, sessions, reports, uploads and contact messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, dev)

	fmt.Print(banner)
	fmt.Println()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	logger.Info("datastore ready", "driver", cfg.Store.Driver)

	// A nil interface, not a nil *S3Signer, keeps uploads answering 503.
	var signer objectstore.Signer
	if cfg.Uploads.Bucket != "" {
		s3Signer, err := objectstore.New(ctx, objectstore.Options{
			Bucket:        cfg.Uploads.Bucket,
			Region:        cfg.Uploads.Region,
			Endpoint:      cfg.Uploads.Endpoint,
			AccessKey:     cfg.Uploads.AccessKey,
			SecretKey:     cfg.Uploads.SecretKey,
			PublicBaseURL: cfg.Uploads.PublicBaseURL,
			URLTTL:        cfg.Uploads.URLTTL,
		})
		if err != nil {
			store.Close()
			return fmt.Errorf("init uploads: %w", err)
		}
		signer = s3Signer
		logger.Info("uploads enabled", "bucket", cfg.Uploads.Bucket)
	} else {
		logger.Warn("uploads disabled: no bucket configured")
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.PublicURL = cfg.Server.PublicURL
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	srvCfg.RequestTimeout = cfg.Server.RequestTimeout
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	srvCfg.MaxBodySize = cfg.Server.MaxBodySize
	srvCfg.MaxUploadSize = cfg.Uploads.MaxBytes
	srvCfg.GlobalRateLimit = cfg.Server.GlobalRatePerMinute
	srvCfg.SecureCookies = cfg.Production()
	if !srvCfg.SecureCookies {
		logger.Warn("session cookies are not marked Secure", "env", cfg.Env)
	}

	srv := server.New(srvCfg, store, signer, logger)

	fmt.Printf("→ Bachejoa %s (%s)\n", versionString(), cfg.Env)
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
