package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"una/internal/market/adapters/out/cache"
	"una/internal/market/adapters/out/console"
	"una/internal/market/adapters/out/ipapi"
	"una/internal/market/adapters/out/repo"
	out "una/internal/market/application/ports/out"
	"una/internal/market/application/usecase"
	"una/internal/shared/auth"
	"una/internal/shared/config"
	db_conn "una/internal/shared/db"
	"una/internal/shared/logger"
	"una/internal/shared/utils"

	"github.com/spf13/cobra"
)

const (
	cacheFile    = "cache.json"
	deviceIDFile = "device_id"
)

// options — общие флаги всех подкоманд
type options struct {
	home     string
	deviceID string
	userID   string
	token    string
	clientIP string
	geoipURL string
	useDB    bool
	asJSON   bool
	verbose  bool

	cfg config.Config
	log *logger.Logger
}

// Execute запускает unactl с аргументами процесса; SIGINT отменяет текущую операцию
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "unactl",
		Short:         "unactl — рынок и язык устройства из терминала",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			opts.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.home, "home", "", "каталог состояния (по умолчанию ~/.una)")
	pf.StringVar(&opts.deviceID, "device", "", "идентификатор устройства (по умолчанию сохраняется в --home)")
	pf.StringVar(&opts.userID, "user", "", "идентификатор вошедшего пользователя")
	pf.StringVar(&opts.token, "token", "", "JWT вошедшего пользователя (вместо --user)")
	pf.StringVar(&opts.clientIP, "ip", "", "IP для определения страны (пусто — адрес этой машины)")
	pf.StringVar(&opts.geoipURL, "geoip-url", "", "базовый URL сервиса геолокации")
	pf.BoolVar(&opts.useDB, "db", false, "хранить предпочтения пользователя в Postgres")
	pf.BoolVar(&opts.asJSON, "json", false, "вывод в JSON")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "писать логи")

	root.AddCommand(
		resolveCmd(opts),
		setMarketCmd(opts),
		setLanguageCmd(opts),
		marketsCmd(opts),
		tokenCmd(opts),
	)
	return root
}

func (o *options) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.geoipURL != "" {
		cfg.GeoIP.BaseURL = o.geoipURL
	}
	o.cfg = cfg

	if o.verbose {
		o.log = logger.NewLogger("unactl")
	} else {
		o.log = logger.NewNop()
	}

	if o.home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("home dir: %w", err)
		}
		o.home = filepath.Join(dir, ".una")
	}
	return nil
}

// identity — кто работает: --token важнее --user
func (o *options) identity() (bool, string, error) {
	if o.token != "" {
		userID, err := auth.NewJWTService(o.cfg.JWT).ExtractUserID(o.token)
		if err != nil {
			return false, "", err
		}
		return true, userID, nil
	}
	if o.userID != "" {
		return true, o.userID, nil
	}
	return false, "", nil
}

// device возвращает --device или идентификатор, сохранённый в --home (создаётся при первом запуске)
func (o *options) device() (string, error) {
	if o.deviceID != "" {
		return o.deviceID, nil
	}
	if err := os.MkdirAll(o.home, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", o.home, err)
	}

	path := filepath.Join(o.home, deviceIDFile)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	id := utils.NewUUID()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return id, nil
}

// openSession собирает Resolver поверх файлового кеша и привязывает сессию к пользователю
func (o *options) openSession(ctx context.Context, w io.Writer) (*usecase.Session, func(), error) {
	deviceID, err := o.device()
	if err != nil {
		return nil, nil, err
	}
	authenticated, userID, err := o.identity()
	if err != nil {
		return nil, nil, fmt.Errorf("token: %w", err)
	}

	cleanup := func() {}
	var prefs out.PreferenceRepository
	if o.useDB {
		pool, err := db_conn.NewPool(ctx, o.cfg.Database, o.log)
		if err != nil {
			return nil, nil, err
		}
		if err := db_conn.Migrate(ctx, pool, o.log); err != nil {
			db_conn.Close(pool, o.log)
			return nil, nil, err
		}
		prefs = repo.NewPreferencePgRepository(pool)
		cleanup = func() { db_conn.Close(pool, o.log) }
	}

	resolver := usecase.NewResolver(
		prefs,
		ipapi.NewClient(o.cfg.GeoIP),
		console.NewNotifier(w),
		o.log,
		usecase.WithIPTimeout(o.cfg.GeoIP.Timeout),
	)

	session := usecase.NewSession(resolver, deviceID, o.clientIP, cache.NewFileCache(filepath.Join(o.home, cacheFile)))
	session.Identify(authenticated, userID)
	return session, cleanup, nil
}
