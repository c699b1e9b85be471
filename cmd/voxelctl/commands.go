package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-level/internal/api"
	"github.com/annel0/voxel-level/internal/atlas"
	"github.com/annel0/voxel-level/internal/auth"
	"github.com/annel0/voxel-level/internal/cache"
	"github.com/annel0/voxel-level/internal/logging"
	"github.com/annel0/voxel-level/internal/storage"
	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

func newFlagSet(name string, a *app) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parseVec3 разбирает три целых аргумента
func parseVec3(args []string) (vec.Vec3, error) {
	if len(args) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидалось 3 координаты, получено %d", len(args))
	}
	var v [3]int
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("некорректная координата %q: %w", s, err)
		}
		v[i] = n
	}
	return vec.New(v[0], v[1], v[2]), nil
}

func sizeFlag(fs *pflag.FlagSet, def vec.Vec3) *[]int {
	return fs.IntSlice("size", []int{def.X, def.Y, def.Z}, "размер уровня в чанках X,Y,Z")
}

func sizeFromFlag(s []int) (vec.Vec3, error) {
	if len(s) != 3 {
		return vec.Vec3{}, fmt.Errorf("--size: ожидалось 3 значения, получено %d", len(s))
	}
	return vec.New(s[0], s[1], s[2]), nil
}

func cmdNew(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("new", a)
	size := sizeFlag(fs, a.cfg.Level.Size)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sizeFromFlag(*size)
	if err != nil {
		return err
	}
	reg, err := a.registry()
	if err != nil {
		return err
	}
	lvl, err := world.NewLevel[block.BlockData](s, reg)
	if err != nil {
		return err
	}
	if err := a.saveLevel(ctx, lvl); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Создан уровень %s размером %v\n", lvl.ID(), lvl.Size())
	return nil
}

func cmdGenerate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("generate", a)
	size := sizeFlag(fs, a.cfg.Level.Size)
	seed := fs.Int64("seed", a.cfg.Level.Seed, "сид генератора")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := sizeFromFlag(*size)
	if err != nil {
		return err
	}
	reg, err := a.registry()
	if err != nil {
		return err
	}
	lvl, err := world.NewLevel[block.BlockData](s, reg)
	if err != nil {
		return err
	}

	start := time.Now()
	gen := world.NewGenerator(*seed, lvl.WorldSize().Y)
	written := gen.Fill(lvl)
	logging.Info("🌍 Ландшафт сгенерирован за %v (seed=%d)", time.Since(start), *seed)

	if err := a.saveLevel(ctx, lvl); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Создан уровень %s размером %v, вокселей: %d\n", lvl.ID(), lvl.Size(), written)
	return nil
}

func cmdInfo(ctx context.Context, a *app, args []string) error {
	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}

	uniform := 0
	lvl.ForEachChunk(func(_ vec.Vec3, c *world.BlockChunk) {
		if c.IsUniform() {
			uniform++
		}
	})

	fmt.Fprintf(a.out, "ID:            %s\n", lvl.ID())
	fmt.Fprintf(a.out, "Размер:        %v чанков (%v вокселей)\n", lvl.Size(), lvl.WorldSize())
	fmt.Fprintf(a.out, "Чанков:        %d (однородных: %d)\n", lvl.ChunkCount(), uniform)
	fmt.Fprintf(a.out, "Типов блоков:  %d\n", len(lvl.Registry().Blocks))
	fmt.Fprintf(a.out, "Текстур:       %d\n", len(lvl.Assets().TextureUVs))
	return nil
}

func cmdGet(ctx context.Context, a *app, args []string) error {
	pos, err := parseVec3(args)
	if err != nil {
		return err
	}
	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}

	v, ok := lvl.GetVoxel(pos)
	if !ok {
		return fmt.Errorf("воксель %v вне уровня", pos)
	}
	fmt.Fprintln(a.out, v.Identifier())
	return nil
}

func cmdSet(ctx context.Context, a *app, args []string) error {
	if len(args) != 4 {
		return errors.New("использование: set X Y Z BLOCK")
	}
	pos, err := parseVec3(args[:3])
	if err != nil {
		return err
	}
	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}

	b := block.New(args[3])
	if _, known := lvl.Registry().Lookup(b.Identifier()); !known {
		return fmt.Errorf("неизвестный блок %s", b.Identifier())
	}
	if !lvl.SetVoxel(pos, b) {
		return fmt.Errorf("воксель %v вне уровня", pos)
	}
	return a.saveLevel(ctx, lvl)
}

func cmdNeighbors(ctx context.Context, a *app, args []string) error {
	chunk, err := parseVec3(args)
	if err != nil {
		return err
	}
	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}

	for _, n := range lvl.NeighborPositions(chunk) {
		state := "нет"
		if n.Present {
			state = "есть"
		}
		fmt.Fprintf(a.out, "%v\t%s\n", n.Coord, state)
	}
	return nil
}

func cmdRaycast(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("raycast", a)
	origin := fs.Float32Slice("origin", nil, "начало луча X,Y,Z")
	dir := fs.Float32Slice("dir", nil, "направление луча X,Y,Z")
	radius := fs.Float32("radius", 64, "дальность в мировых единицах")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(*origin) != 3 || len(*dir) != 3 {
		return errors.New("--origin и --dir должны содержать по 3 значения")
	}
	if *radius < 0 {
		return errors.New("--radius не может быть отрицательным")
	}

	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}

	o := mgl32.Vec3{(*origin)[0], (*origin)[1], (*origin)[2]}
	d := mgl32.Vec3{(*dir)[0], (*dir)[1], (*dir)[2]}
	hit, ok := lvl.Raycast(o, d, *radius)
	if !ok {
		fmt.Fprintln(a.out, "Нет попадания")
		return nil
	}
	v, _ := lvl.GetVoxel(hit.Voxel)
	fmt.Fprintf(a.out, "Попадание: %v (%s), чанк %v, нормаль %v, расстояние %.3f\n",
		hit.Voxel, v.Identifier(), hit.Chunk, hit.Normal, hit.Distance)
	return nil
}

func cmdAtlas(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("использование: atlas DIR")
	}
	images, err := atlas.LoadDir(args[0])
	if err != nil {
		return err
	}
	packed, err := atlas.Pack(images)
	if err != nil {
		return err
	}

	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}
	lvl.LoadTextures(packed.Frames, packed.Width, packed.Height, packed.Pixels)
	if err := a.saveLevel(ctx, lvl); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Атлас %dx%d, кадров: %d\n", packed.Width, packed.Height, len(packed.Frames))
	return nil
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	srvCfg := a.cfg.Server
	fs := newFlagSet("serve", a)
	addr := fs.String("addr", fmt.Sprintf(":%d", srvCfg.GetHTTPPort()), "адрес HTTP API")
	writes := fs.Bool("writes", srvCfg.EnableWrites, "разрешить PUT /api/voxel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lvl, err := a.loadLevel(ctx)
	if err != nil {
		return err
	}

	opts := api.Options{Addr: *addr, EnableWrites: *writes}
	if secret := srvCfg.GetJWTSecret(); secret != "" || srvCfg.EditorPasswordHash != "" {
		authority, err := auth.NewAuthority(secret)
		if err != nil {
			return err
		}
		opts.Authority = authority
		if srvCfg.EditorPasswordHash != "" {
			opts.Gate = auth.NewPasswordGate(srvCfg.EditorPasswordHash, authority, auth.DefaultTTL)
		}
	}

	if a.cfg.Cache.Enabled {
		chunks, err := cache.New(ctx, a.cfg.Cache.Config, uuid.NewString())
		if err != nil {
			return err
		}
		defer func() {
			if err := chunks.Close(); err != nil {
				logging.Warn("⚠️ Ошибка закрытия кеша чанков: %v", err)
			}
		}()
		opts.Cache = chunks
	}

	server := api.NewLevelServer(lvl, opts)
	if err := server.Start(); err != nil {
		return err
	}

	metricsAddr := fmt.Sprintf(":%d", srvCfg.GetMetricsPort())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn("⚠️ Сервер метрик %s: %v", metricsAddr, err)
		}
	}()
	logging.Info("📊 Метрики Prometheus на %s/metrics", metricsAddr)

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения")

	shutdownCtx := context.Background()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки HTTP API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	if !*writes {
		return nil
	}
	var saveErr error
	server.WithLevel(func(level *world.BlockLevel) {
		saveErr = a.saveLevel(shutdownCtx, level)
	})
	return saveErr
}

func cmdArchive(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("использование: archive put|get ID|list|delete ID")
	}

	archive, err := storage.OpenArchive(a.cfg.Storage.ArchiveDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logging.Warn("⚠️ Ошибка закрытия архива: %v", err)
		}
	}()

	parseID := func() (uuid.UUID, error) {
		if len(args) != 2 {
			return uuid.Nil, fmt.Errorf("использование: archive %s ID", args[0])
		}
		return uuid.Parse(args[1])
	}

	switch args[0] {
	case "put":
		lvl, err := a.loadLevel(ctx)
		if err != nil {
			return err
		}
		entry, err := storage.ArchiveLevel(ctx, archive, lvl)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "В архиве: %s (%d байт, сжато %d)\n", entry.ID, entry.Size, entry.Bytes)

	case "get":
		id, err := parseID()
		if err != nil {
			return err
		}
		reg, err := a.registry()
		if err != nil {
			return err
		}
		lvl, err := storage.RestoreLevel[block.BlockData](ctx, archive, id, reg)
		if err != nil {
			return err
		}
		if err := a.saveLevel(ctx, lvl); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Восстановлен уровень %s в %s\n", lvl.ID(), a.savePath())

	case "list":
		entries, err := archive.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(a.out, "%s\t%s\t%d\t%d\n", e.ID, e.SavedAt.Format(time.RFC3339), e.Size, e.Bytes)
		}

	case "delete":
		id, err := parseID()
		if err != nil {
			return err
		}
		if err := archive.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Удалён %s\n", id)

	default:
		return fmt.Errorf("неизвестная команда архива %q", args[0])
	}
	return nil
}

func cmdToken(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("token", a)
	editor := fs.String("editor", "", "имя редактора")
	ttl := fs.Duration("ttl", auth.DefaultTTL, "срок действия токена")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *editor == "" {
		return errors.New("--editor обязателен")
	}

	secret := a.cfg.Server.GetJWTSecret()
	if secret == "" {
		return errors.New("не задан server.jwt_secret (или VOXEL_JWT_SECRET)")
	}
	authority, err := auth.NewAuthority(secret)
	if err != nil {
		return err
	}
	token, err := authority.Issue(*editor, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func cmdHashPassword(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("использование: hash-password PASSWORD")
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, hash)
	return nil
}
