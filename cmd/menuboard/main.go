/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"menuboard/internal/auth"
	"menuboard/internal/board"
	"menuboard/internal/config"
	"menuboard/internal/crash"
	"menuboard/internal/export"
	"menuboard/internal/i18n"
	applog "menuboard/internal/log"
	"menuboard/internal/pin"
	"menuboard/internal/preset"
	"menuboard/internal/server"
	"menuboard/internal/settings"
	"menuboard/internal/storage"
	"menuboard/internal/telemetry"
	"menuboard/internal/undo"
	"menuboard/internal/version"
)

func usage() {
	fmt.Println("Menu Board: digital signage menu editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  menuboard version|-v|--version              Show version")
	fmt.Println("  menuboard serve [addr]                       Run the editor API (default MB_ADDR)")
	fmt.Println("  menuboard layout <user>                      Print the stored layout of <user> as JSON")
	fmt.Println("  menuboard presets list                       List saved presets")
	fmt.Println("  menuboard presets export <zip>               Write all presets into a pack")
	fmt.Println("  menuboard presets install <zip>              Install the presets of a pack")
	fmt.Println("  menuboard export <user> <dir> [web|print]    Export the board of <user> into <dir>")
	fmt.Println("  menuboard pin check <pin>                    Check the board PIN")
	fmt.Println("  menuboard pin set <current> <next>           Change the board PIN")
	fmt.Println("  menuboard config path|get <key>              Show the config file or one value")
}

// services are the opened stores and the layers built on them.
type services struct {
	cfg     config.AppConfig
	store   *storage.FileStore
	db      *sql.DB
	kv      *settings.SQLite
	auth    *auth.Service
	boards  *board.Service
	presets *preset.Store
	pin     *pin.Gate
}

func open(ctx context.Context, cfg config.AppConfig) (*services, error) {
	root := cfg.Storage.DataDir
	store, err := storage.OpenFileStore(root)
	if err != nil {
		return nil, err
	}
	db, err := storage.OpenDB(ctx, root)
	if err != nil {
		return nil, err
	}
	kv := settings.NewSQLite(db)
	var authOpts []auth.Option
	if cfg.Security.BcryptCost > 0 {
		authOpts = append(authOpts, auth.WithCost(cfg.Security.BcryptCost))
	}
	var pinOpts []pin.Option
	if cfg.Security.PinInKeyring {
		pinOpts = append(pinOpts, pin.WithKeyring(config.Keyring{}))
	}
	return &services{
		cfg:   cfg,
		store: store,
		db:    db,
		kv:    kv,
		auth:  auth.New(store, authOpts...),
		boards: board.New(store, db,
			board.WithPages(cfg.Board.Pages),
			board.WithSnap(cfg.Board.Snap),
			board.WithHistory(undo.NewManager(undo.Config{MaxPerKey: 200, MaxBytes: 64 << 20})),
		),
		presets: preset.New(kv),
		pin:     pin.New(kv, pinOpts...),
	}, nil
}

func (s *services) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func need(args []string, n int, msg string) {
	if len(args) < n {
		fmt.Println(msg)
		usage()
		os.Exit(2)
	}
}

func main() {
	cfg, cfgPath, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	handler := &crash.Handler{DataDir: cfg.Storage.DataDir}
	defer handler.Recover()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Menu Board")
		fmt.Println(version.String())
		return
	case "config":
		need(args, 3, "config requires path or get <key>")
		switch args[2] {
		case "path":
			fmt.Println(cfgPath)
		case "get":
			need(args, 4, "config get requires <key>")
			v, ok := cfg.Get(args[3])
			if !ok {
				fmt.Println("unknown key:", args[3])
				os.Exit(2)
			}
			if env, over := config.EnvOverrideFor(args[3]); over {
				fmt.Printf("%s (from %s)\n", v, env)
				return
			}
			fmt.Println(v)
		default:
			usage()
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc, err := open(ctx, cfg)
	if err != nil {
		fail(l, "open data dir failed", err)
	}
	defer svc.Close()
	handler.Boards = svc.boards

	switch args[1] {
	case "serve":
		serve(ctx, l, svc, args[2:])
	case "layout":
		need(args, 3, "layout requires <user>")
		layout, err := storage.LoadLayout(ctx, svc.store, args[2])
		if err != nil {
			fail(l, "load layout failed", err)
		}
		out, _ := json.MarshalIndent(layout, "", "  ")
		fmt.Println(string(out))
	case "presets":
		need(args, 3, "presets requires list, export or install")
		presetsCmd(ctx, l, svc, args[2:])
	case "export":
		need(args, 4, "export requires <user> and <dir>")
		p := export.PresetWeb
		if len(args) > 4 {
			p = export.PresetName(args[4])
		}
		exportCmd(ctx, l, svc, args[2], args[3], p)
	case "pin":
		need(args, 4, "pin requires check <pin> or set <current> <next>")
		pinCmd(ctx, l, svc, args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func serve(ctx context.Context, l *slog.Logger, svc *services, args []string) {
	scfg, err := config.LoadServer()
	if err != nil {
		fail(l, "server config invalid", err)
	}
	if len(args) > 0 {
		scfg.Addr = args[0]
	}
	if svc.cfg.General.TelemetryOptIn {
		tc := telemetry.FromEnv()
		tc.OptIn = true
		telemetry.SetDefault(telemetry.New(tc))
	}
	srv := server.New(server.Deps{
		Auth:     svc.auth,
		Boards:   svc.boards,
		Presets:  svc.presets,
		PIN:      svc.pin,
		Settings: svc.kv,
		I18n:     i18n.Default(),
		Language: svc.cfg.General.Language,
	}, scfg)
	telemetry.Event("server_start", map[string]any{"keyring": svc.cfg.Security.PinInKeyring})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(scfg.Addr) }()
	select {
	case err := <-errCh:
		if err != nil {
			fail(l, "server stopped", err)
		}
	case <-ctx.Done():
		l.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Error("shutdown failed", slog.Any("err", err))
		}
		for _, b := range svc.boards.Boards() {
			if ok, err := b.Autosave(sctx); err != nil {
				l.Warn("draft autosave failed", slog.String("user", b.User()), slog.Any("err", err))
			} else if ok {
				l.Info("draft autosaved", slog.String("user", b.User()))
			}
		}
		telemetry.Default().Flush(sctx)
	}
}

func presetsCmd(ctx context.Context, l *slog.Logger, svc *services, args []string) {
	switch args[0] {
	case "list":
		for _, p := range svc.presets.List(ctx) {
			fmt.Printf("%s\t%s\t%d items\t%s\n", p.ID, p.Name, len(p.Items),
				time.UnixMilli(p.CreatedAt).Format(time.RFC3339))
		}
	case "export":
		need(args, 2, "presets export requires <zip>")
		abs, _ := filepath.Abs(args[1])
		n, err := svc.presets.ExportPack(ctx, abs)
		if err != nil {
			fail(l, "export pack failed", err)
		}
		fmt.Printf("Wrote %d presets to %s\n", n, abs)
	case "install":
		need(args, 2, "presets install requires <zip>")
		n, err := svc.presets.InstallPack(ctx, args[1])
		if err != nil {
			fail(l, "install pack failed", err)
		}
		fmt.Println(i18n.Default().T(i18n.Default().Language(ctx, svc.kv), "preset.installed", n))
	default:
		usage()
		os.Exit(2)
	}
}

func exportCmd(ctx context.Context, l *slog.Logger, svc *services, user, dir string, p export.PresetName) {
	b := svc.boards.Open(ctx, user)
	opt := export.Options{Pages: svc.boards.PageConfig(), Images: b.Image}
	if bg, err := b.Background(ctx); err == nil {
		opt.Background = bg
	} else if !errors.Is(err, storage.ErrNotFound) {
		l.Warn("background unavailable", slog.Any("err", err))
	}
	abs, _ := filepath.Abs(dir)
	files, err := export.Batch(ctx, b.Layout(), export.BatchOptions{Preset: p, OutDir: abs, Options: opt})
	if err != nil {
		fail(l, "export failed", err)
	}
	for _, f := range files {
		fmt.Println(f)
	}
}

func pinCmd(ctx context.Context, l *slog.Logger, svc *services, args []string) {
	lang := i18n.Default().Language(ctx, svc.kv)
	switch args[0] {
	case "check":
		if !svc.pin.Check(ctx, args[1]) {
			fmt.Println(i18n.Default().T(lang, "pin.mismatch"))
			os.Exit(1)
		}
		fmt.Println("OK")
	case "set":
		need(args, 3, "pin set requires <current> <next>")
		if err := svc.pin.Change(ctx, args[1], args[2]); err != nil {
			key := "pin.invalid_format"
			if errors.Is(err, pin.ErrMismatch) {
				key = "pin.mismatch"
			} else if !errors.Is(err, pin.ErrInvalidFormat) {
				fail(l, "change PIN failed", err)
			}
			fmt.Println(i18n.Default().T(lang, key))
			os.Exit(1)
		}
		fmt.Println(i18n.Default().T(lang, "pin.changed"))
	default:
		usage()
		os.Exit(2)
	}
}
