// voxelctl управляет воксельным уровнем: создаёт, генерирует, правит,
// трассирует лучи, архивирует и отдаёт его по HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/annel0/voxel-level/internal/config"
	"github.com/annel0/voxel-level/internal/logging"
	"github.com/annel0/voxel-level/internal/observability"
	"github.com/annel0/voxel-level/internal/storage"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// command подкоманда voxelctl
type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"new":           {"new [--size X,Y,Z]", "создать пустой уровень", cmdNew},
	"generate":      {"generate [--size X,Y,Z] [--seed N]", "создать уровень с ландшафтом", cmdGenerate},
	"info":          {"info", "показать сведения об уровне", cmdInfo},
	"get":           {"get X Y Z", "прочитать воксель", cmdGet},
	"set":           {"set X Y Z BLOCK", "записать воксель и сохранить уровень", cmdSet},
	"neighbors":     {"neighbors CX CY CZ", "показать соседей чанка", cmdNeighbors},
	"raycast":       {"raycast --origin X,Y,Z --dir X,Y,Z [--radius R]", "трассировать луч", cmdRaycast},
	"atlas":         {"atlas DIR", "упаковать PNG-текстуры в атлас уровня", cmdAtlas},
	"serve":         {"serve [--addr ADDR] [--writes]", "запустить HTTP API", cmdServe},
	"archive":       {"archive put|get ID|list|delete ID", "работа с архивом уровней", cmdArchive},
	"token":         {"token --editor NAME [--ttl D]", "выпустить токен редактора", cmdToken},
	"hash-password": {"hash-password PASSWORD", "получить bcrypt-хэш пароля", cmdHashPassword},
}

// app общее состояние подкоманд
type app struct {
	cfg       *config.Config
	levelPath string
	out       io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("voxelctl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(out)
	configPath := flags.StringP("config", "c", "", "путь к YAML конфигурации (или VOXEL_CONFIG)")
	levelPath := flags.StringP("level", "l", "", "файл уровня (по умолчанию storage.save_path)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(out, flags)
			return nil
		}
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(out, flags)
		return errors.New("не указана команда")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("неизвестная команда %q", rest[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return err
	}
	defer logging.CloseDefaultLogger()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("⚠️ Телеметрия недоступна: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
				}
			}()
		}
	}

	a := &app{cfg: cfg, levelPath: *levelPath, out: out}
	return cmd.run(ctx, a, rest[1:])
}

// setupLogging настраивает логгеры всех компонентов по секции logging.
// Консольные логи идут в stderr, чтобы не смешиваться с выводом команд.
func setupLogging(cfg config.LoggingConfig) error {
	console, err := logging.ParseLevel(cfg.ConsoleLevel)
	if err != nil {
		return err
	}
	file, err := logging.ParseLevel(cfg.FileLevel)
	if err != nil {
		return err
	}

	logging.SetConsoleOutput(os.Stderr)
	logging.SetLogDir(cfg.Dir)
	logging.SetDefaultLevels(console, file)
	return logging.InitDefaultLogger("voxelctl")
}

func printUsage(out io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(out, "Использование: voxelctl [флаги] КОМАНДА [аргументы]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Команды:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-48s %s\n", commands[name].usage, commands[name].summary)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Флаги:")
	fmt.Fprint(out, flags.FlagUsages())
}

// savePath путь файла уровня. При storage.compress добавляется суффикс .zst.
func (a *app) savePath() string {
	path := a.levelPath
	if path == "" {
		path = a.cfg.Storage.SavePath
	}
	if a.cfg.Storage.Compress && !storage.IsCompressed(path) {
		path += storage.CompressedSuffix
	}
	return path
}

// registry возвращает реестр блоков: встроенные плюс block_registry из конфигурации
func (a *app) registry() (*block.Registry, error) {
	if a.cfg.Level.Registry == "" {
		return block.NewRegistry(), nil
	}
	return block.LoadRegistryFile(a.cfg.Level.Registry)
}

func (a *app) loadLevel(ctx context.Context) (*world.BlockLevel, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	path := a.savePath()
	lvl, err := storage.LoadLevel[block.BlockData](ctx, path, reg)
	if err != nil {
		return nil, err
	}
	logging.Debug("Уровень %s загружен из %s", lvl.ID(), path)
	return lvl, nil
}

func (a *app) saveLevel(ctx context.Context, lvl *world.BlockLevel) error {
	path := a.savePath()
	if err := storage.SaveLevel(ctx, path, lvl); err != nil {
		return err
	}
	logging.Info("💾 Уровень %s сохранён в %s", lvl.ID(), path)
	return nil
}
