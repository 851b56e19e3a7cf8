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
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"goslidedeck/internal/backend"
	"goslidedeck/internal/bundle"
	"goslidedeck/internal/config"
	"goslidedeck/internal/crash"
	"goslidedeck/internal/domain"
	"goslidedeck/internal/editor"
	"goslidedeck/internal/export"
	"goslidedeck/internal/generate"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/serial"
	"goslidedeck/internal/storage"
	"goslidedeck/internal/telemetry"
	"goslidedeck/internal/textlayout"
	"goslidedeck/internal/ui"
	"goslidedeck/internal/version"
)

// envServerSecret signs publish tokens on the server side.
const envServerSecret = "GSD_SERVER_SECRET"

func usage(w io.Writer) {
	fmt.Fprintln(w, "GoSlideDeck")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  goslidedeck version|-v|--version              Show version")
	fmt.Fprintln(w, "  goslidedeck new <deck> [title]                 Create a deck file with the starter slide")
	fmt.Fprintln(w, "  goslidedeck info <deck>                        Print a deck summary")
	fmt.Fprintln(w, "  goslidedeck import <file.json> <deck>          Validate a JSON export and save it as a deck")
	fmt.Fprintln(w, "  goslidedeck export-json <deck> <out.json>      Export the deck as JSON")
	fmt.Fprintln(w, "  goslidedeck export-pdf <deck> <out.pdf>        Export the deck as PDF")
	fmt.Fprintln(w, "  goslidedeck export-svg <deck> <dir>            Export one SVG per slide")
	fmt.Fprintln(w, "  goslidedeck thumbs <deck> <dir> [-width N]     Write PNG thumbnails")
	fmt.Fprintln(w, "  goslidedeck batch <deck> [-preset web|print] [-formats pdf,png,svg,json] [-out dir]")
	fmt.Fprintln(w, "  goslidedeck search <dir> <query> [-deck name]  Full-text search over saved decks")
	fmt.Fprintln(w, "  goslidedeck history <deck> [-n N]              List recorded saves")
	fmt.Fprintln(w, "  goslidedeck generate <deck> <topic> [-slide N] Replace a slide with generated content")
	fmt.Fprintln(w, "  goslidedeck bundle <deck> <out.zip>            Pack the deck and its local images into a zip")
	fmt.Fprintln(w, "  goslidedeck unbundle <zip> <dir> [-name n]     Unpack a bundle into dir as a new deck")
	fmt.Fprintln(w, "  goslidedeck set-key <api-key>                  Store the generation API key in the OS keychain")
	fmt.Fprintln(w, "  goslidedeck serve [-addr :8080] [-memory] [-dev-tokens]")
	fmt.Fprintln(w, "  goslidedeck token [-subject name] [-ttl 720h] [-save]")
	fmt.Fprintln(w, "  goslidedeck publish <deck>                     Upload the deck to the publish server")
	fmt.Fprintln(w, "  goslidedeck ui [<deck>]                        Launch desktop UI (build with -tags fyne for full UI)")
}

// cli carries what every command needs.
type cli struct {
	cfg    config.AppConfig
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
	open   *openDeck
}

// openDeck is the deck a command works on; crash.Recover autosaves it.
type openDeck struct{ h *storage.DeckHandle }

func (o *openDeck) DeckPath() string {
	if o.h == nil {
		return ""
	}
	return o.h.Path
}

func (o *openDeck) Snapshot() domain.Presentation {
	if o.h == nil {
		return domain.Presentation{}
	}
	return o.h.Presentation
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		// defaults are still usable
		fmt.Fprintln(stderr, "Warning:", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tc := telemetry.New(tcfg)
	prev := telemetry.SetDefault(tc)
	defer func() {
		tc.Close()
		telemetry.SetDefault(prev)
	}()

	c := &cli{cfg: cfg, log: applog.WithComponent("cli"), stdout: stdout, stderr: stderr, open: &openDeck{}}
	defer crash.Recover(c.open)

	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	c.log.Debug("start", slog.String("command", cmd), slog.Int("args", len(rest)))
	telemetry.Event(telemetry.EventStarted, map[string]any{"command": cmd})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cmdErr error
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "GoSlideDeck")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "new":
		cmdErr = c.cmdNew(rest)
	case "info":
		cmdErr = c.cmdInfo(rest)
	case "import":
		cmdErr = c.cmdImport(ctx, rest)
	case "export-json":
		cmdErr = c.cmdExportJSON(rest)
	case "export-pdf":
		cmdErr = c.cmdExportPDF(ctx, rest)
	case "export-svg":
		cmdErr = c.cmdExportSVG(rest)
	case "thumbs":
		cmdErr = c.cmdThumbs(ctx, rest)
	case "batch":
		cmdErr = c.cmdBatch(ctx, rest)
	case "search":
		cmdErr = c.cmdSearch(ctx, rest)
	case "history":
		cmdErr = c.cmdHistory(ctx, rest)
	case "generate":
		cmdErr = c.cmdGenerate(ctx, rest)
	case "bundle":
		cmdErr = c.cmdBundle(rest)
	case "unbundle":
		cmdErr = c.cmdUnbundle(rest)
	case "set-key":
		cmdErr = c.cmdSetKey(rest)
	case "serve":
		cmdErr = c.cmdServe(ctx, rest)
	case "token":
		cmdErr = c.cmdToken(rest)
	case "publish":
		cmdErr = c.cmdPublish(ctx, rest)
	case "ui":
		cmdErr = c.cmdUI(rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	var ue usageError
	switch {
	case cmdErr == nil:
		return 0
	case errors.As(cmdErr, &ue):
		fmt.Fprintln(stderr, ue.msg)
		usage(stderr)
		return 2
	default:
		c.log.Error("command failed", slog.String("command", cmd), slog.Any("err", cmdErr))
		fmt.Fprintln(stderr, "Error:", cmdErr)
		return 1
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// parse splits positional arguments from flags, which may follow them.
func parse(fs *flag.FlagSet, args []string, want int, name string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageError{fmt.Sprintf("%s: %v", name, err)}
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
	if len(pos) < want {
		return nil, usageError{fmt.Sprintf("%s requires %d argument(s)", name, want)}
	}
	return pos, nil
}

func (c *cli) load(path string) (*storage.DeckHandle, error) {
	h, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	if h.Recovered {
		fmt.Fprintln(c.stderr, "Warning: deck file was unreadable; loaded the latest backup")
	}
	c.open.h = h
	return h, nil
}

func (c *cli) cmdNew(args []string) error {
	pos, err := parse(flag.NewFlagSet("new", flag.ContinueOnError), args, 1, "new")
	if err != nil {
		return err
	}
	p := domain.DefaultPresentation(nil)
	if len(pos) > 1 {
		p.Title = strings.Join(pos[1:], " ")
	}
	path := withDeckExt(pos[0])
	h, err := storage.Create(path, p)
	if err != nil {
		return err
	}
	c.open.h = h
	c.log.Info("deck created", slog.String("path", path))
	fmt.Fprintln(c.stdout, "Created deck at", path)
	return nil
}

func (c *cli) cmdBundle(args []string) error {
	pos, err := parse(flag.NewFlagSet("bundle", flag.ContinueOnError), args, 2, "bundle")
	if err != nil {
		return err
	}
	n, err := bundle.Export(pos[0], pos[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Bundled deck with %d asset(s) to %s\n", n, pos[1])
	return nil
}

func (c *cli) cmdUnbundle(args []string) error {
	fs := flag.NewFlagSet("unbundle", flag.ContinueOnError)
	name := fs.String("name", "", "deck file name without extension")
	pos, err := parse(fs, args, 2, "unbundle")
	if err != nil {
		return err
	}
	res, err := bundle.Import(pos[0], pos[1], *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Unpacked %s (%d asset(s), %d skipped)\n", res.DeckPath, res.Assets, res.Skipped)
	return nil
}

func (c *cli) cmdInfo(args []string) error {
	pos, err := parse(flag.NewFlagSet("info", flag.ContinueOnError), args, 1, "info")
	if err != nil {
		return err
	}
	h, err := c.load(pos[0])
	if err != nil {
		return err
	}
	p := h.Presentation
	fmt.Fprintf(c.stdout, "Deck: %s\n", p.Title)
	fmt.Fprintf(c.stdout, "Slides: %d\n", len(p.Slides))
	for i, sl := range p.Slides {
		fmt.Fprintf(c.stdout, "  %3d  %-8s %2d elements  %s\n", i+1, sl.Background, len(sl.Elements), sl.ID)
	}
	return nil
}

func (c *cli) cmdImport(ctx context.Context, args []string) error {
	pos, err := parse(flag.NewFlagSet("import", flag.ContinueOnError), args, 2, "import")
	if err != nil {
		return err
	}
	f, err := os.Open(pos[0])
	if err != nil {
		return err
	}
	defer f.Close()
	s, err := editor.New(c.editorOptions())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Import(f); err != nil {
		return err
	}
	path := withDeckExt(pos[1])
	if err := s.SaveAs(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Imported %d slides into %s\n", s.Store.SlideCount(), path)
	return nil
}

func (c *cli) cmdExportJSON(args []string) error {
	pos, err := parse(flag.NewFlagSet("export-json", flag.ContinueOnError), args, 2, "export-json")
	if err != nil {
		return err
	}
	h, err := c.load(pos[0])
	if err != nil {
		return err
	}
	f, err := os.Create(pos[1])
	if err != nil {
		return err
	}
	if err := serial.WriteJSON(f, h.Presentation); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"format": "json", "slides": len(h.Presentation.Slides)})
	fmt.Fprintln(c.stdout, "Exported to", pos[1])
	return nil
}

func (c *cli) cmdExportPDF(ctx context.Context, args []string) error {
	pos, err := parse(flag.NewFlagSet("export-pdf", flag.ContinueOnError), args, 2, "export-pdf")
	if err != nil {
		return err
	}
	h, err := c.load(pos[0])
	if err != nil {
		return err
	}
	opt := export.PDFOptions{Images: export.NewLoader(h.Dir())}
	if err := export.ExportPDFFile(ctx, h.Presentation, pos[1], opt); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"format": "pdf", "slides": len(h.Presentation.Slides)})
	fmt.Fprintln(c.stdout, "Exported to", pos[1])
	return nil
}

func (c *cli) cmdExportSVG(args []string) error {
	pos, err := parse(flag.NewFlagSet("export-svg", flag.ContinueOnError), args, 2, "export-svg")
	if err != nil {
		return err
	}
	h, err := c.load(pos[0])
	if err != nil {
		return err
	}
	fonts, err := textlayout.GoFonts()
	if err != nil {
		return err
	}
	paths, err := export.WriteSlideSVGs(h.Presentation, pos[1], fonts)
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"format": "svg", "slides": len(paths)})
	fmt.Fprintf(c.stdout, "Exported %d slides to %s\n", len(paths), pos[1])
	return nil
}

func (c *cli) cmdThumbs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("thumbs", flag.ContinueOnError)
	width := fs.Int("width", c.cfg.Editor.ThumbnailWidth, "thumbnail width in pixels")
	pos, err := parse(fs, args, 2, "thumbs")
	if err != nil {
		return err
	}
	opt := c.editorOptions()
	opt.ThumbnailWidth = *width
	s, err := editor.Open(pos[0], opt)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := os.MkdirAll(pos[1], 0o755); err != nil {
		return err
	}
	for i := 0; i < s.Store.SlideCount(); i++ {
		raw, err := s.Thumbnail(ctx, i)
		if err != nil {
			return err
		}
		name := filepath.Join(pos[1], fmt.Sprintf("thumb-%03d.png", i+1))
		if err := os.WriteFile(name, raw, 0o644); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.stdout, "Wrote %d thumbnails to %s\n", s.Store.SlideCount(), pos[1])
	return nil
}

func (c *cli) cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	preset := fs.String("preset", string(export.PresetWeb), "export preset: web or print")
	formats := fs.String("formats", "", "comma separated formats (pdf,png,svg,json)")
	out := fs.String("out", "", "output directory")
	width := fs.Float64("width", 0, "png width in pixels")
	pos, err := parse(fs, args, 1, "batch")
	if err != nil {
		return err
	}
	h, err := c.load(pos[0])
	if err != nil {
		return err
	}
	images := export.NewLoader(h.Dir())
	r, err := export.NewRenderer(images)
	if err != nil {
		return err
	}
	opt := export.BatchOptions{Preset: export.PresetName(*preset), OutDir: *out, PixelWidth: *width, Images: images}
	if strings.TrimSpace(*formats) != "" {
		opt.Formats = strings.Split(*formats, ",")
	}
	res, err := export.BatchExport(ctx, h.Presentation, r, opt)
	for _, f := range res.Files {
		fmt.Fprintln(c.stdout, f)
	}
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"format": "batch", "slides": len(h.Presentation.Slides)})
	return nil
}

func (c *cli) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	deckName := fs.String("deck", "", "restrict to one deck")
	limit := fs.Int("n", 20, "maximum results")
	pos, err := parse(fs, args, 2, "search")
	if err != nil {
		return err
	}
	res, err := storage.Search(ctx, pos[0], storage.SearchQuery{Text: strings.Join(pos[1:], " "), Deck: *deckName, Limit: *limit})
	if err != nil {
		return err
	}
	for _, r := range res {
		where := "title"
		if r.SlideIndex >= 0 {
			where = fmt.Sprintf("slide %d", r.SlideIndex+1)
		}
		fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", r.Deck, where, r.Snippet)
	}
	if len(res) == 0 {
		fmt.Fprintln(c.stdout, "No matches.")
	}
	return nil
}

func (c *cli) cmdHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	n := fs.Int("n", 10, "number of entries")
	pos, err := parse(fs, args, 1, "history")
	if err != nil {
		return err
	}
	hist, err := storage.ListHistory(ctx, pos[0], *n)
	if err != nil {
		return err
	}
	for _, e := range hist {
		fmt.Fprintf(c.stdout, "%s  %-30q %2d slides %3d elements %7d bytes\n",
			e.TS.Local().Format(time.DateTime), e.Title, e.Slides, e.Elements, e.Bytes)
	}
	if len(hist) == 0 {
		fmt.Fprintln(c.stdout, "No saves recorded.")
	}
	return nil
}

// generator builds the Gemini client from config and the keychain. It returns
// nil when no API key is configured.
func (c *cli) generator() generate.Generator {
	key, err := config.Secret(config.KeyGenerationAPI)
	if err != nil {
		c.log.Warn("reading API key failed", slog.Any("err", err))
	}
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return generate.NewGemini(generate.GeminiConfig{
		APIKey:  key,
		Model:   c.cfg.Generation.Model,
		BaseURL: c.cfg.Generation.BaseURL,
		Timeout: c.cfg.Generation.Timeout(),
	})
}

func (c *cli) editorOptions() editor.Options {
	return editor.Options{
		Generator:      c.generator(),
		ThumbnailWidth: c.cfg.Editor.ThumbnailWidth,
		KeepBackups:    c.cfg.Editor.KeepBackups,
	}
}

func (c *cli) cmdGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	slide := fs.Int("slide", 1, "slide number to replace")
	pos, err := parse(fs, args, 2, "generate")
	if err != nil {
		return err
	}
	var res generate.Result
	opt := c.editorOptions()
	opt.OnGenerated = func(r generate.Result) { res = r }
	s, err := editor.Open(pos[0], opt)
	if err != nil {
		return err
	}
	if !s.GenerationAvailable() {
		return fmt.Errorf("no API key: run `goslidedeck set-key <key>` or set %s", config.EnvGenerationAPIKey)
	}
	if got := s.Store.SetActiveSlide(*slide - 1); got != *slide-1 {
		return fmt.Errorf("slide %d out of range (deck has %d)", *slide, s.Store.SlideCount())
	}
	if _, err := s.Generate(ctx, strings.Join(pos[1:], " ")); err != nil {
		return err
	}
	s.Close()
	if res.Err != nil {
		return res.Err
	}
	if err := s.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Slide %d now has %d generated elements\n", *slide, res.Elements)
	return nil
}

func (c *cli) cmdSetKey(args []string) error {
	pos, err := parse(flag.NewFlagSet("set-key", flag.ContinueOnError), args, 1, "set-key")
	if err != nil {
		return err
	}
	if err := config.SetSecret(config.KeyGenerationAPI, strings.TrimSpace(pos[0])); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "API key stored in the OS keychain.")
	return nil
}

func (c *cli) serverSecret() (string, error) {
	s := strings.TrimSpace(os.Getenv(envServerSecret))
	if s == "" {
		return "", fmt.Errorf("%s is not set", envServerSecret)
	}
	return s, nil
}

func (c *cli) cmdServe(ctx context.Context, args []string) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("loading .env failed", slog.Any("err", err))
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", c.cfg.Server.Addr, "listen address")
	memory := fs.Bool("memory", false, "keep publications in memory instead of PostgreSQL")
	devTokens := fs.Bool("dev-tokens", false, "enable POST /api/auth/token")
	origins := fs.String("origins", "", "comma separated CORS origins")
	if _, err := parse(fs, args, 0, "serve"); err != nil {
		return err
	}
	secret, err := c.serverSecret()
	if err != nil {
		return err
	}
	var repo backend.Repo
	if *memory {
		repo = backend.NewMemoryRepo()
	} else {
		dsn := os.Getenv(config.EnvDatabaseURL)
		if dsn == "" {
			dsn = c.cfg.Server.DatabaseURL
		}
		if dsn == "" {
			return fmt.Errorf("no database configured: set %s or use -memory", config.EnvDatabaseURL)
		}
		pg, err := backend.OpenPG(ctx, dsn)
		if err != nil {
			return err
		}
		defer pg.Close()
		repo = pg
	}
	opt := backend.Options{Secret: secret, DevTokens: *devTokens}
	if strings.TrimSpace(*origins) != "" {
		opt.AllowedOrigins = strings.Split(*origins, ",")
	}
	srv, err := backend.NewServer(repo, opt)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Serving on", *addr)
	return srv.ListenAndServe(ctx, *addr)
}

func (c *cli) cmdToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", os.Getenv("USER"), "token subject")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	save := fs.Bool("save", false, "store the token in the OS keychain for publish")
	if _, err := parse(fs, args, 0, "token"); err != nil {
		return err
	}
	secret, err := c.serverSecret()
	if err != nil {
		return err
	}
	tok, err := backend.SignToken(secret, *subject, time.Now().Add(*ttl))
	if err != nil {
		return err
	}
	if *save {
		if err := config.SetSecret(config.KeyServerToken, tok); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "Token stored in the OS keychain.")
		return nil
	}
	fmt.Fprintln(c.stdout, tok)
	return nil
}

func (c *cli) cmdPublish(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	server := fs.String("server", c.cfg.Server.BaseURL, "publish server base URL")
	pos, err := parse(fs, args, 1, "publish")
	if err != nil {
		return err
	}
	h, err := c.load(pos[0])
	if err != nil {
		return err
	}
	tok, err := config.Secret(config.KeyServerToken)
	if err != nil {
		return err
	}
	if tok == "" {
		return fmt.Errorf("no publish token: run `goslidedeck token -save` or set %s", config.EnvServerToken)
	}
	cl := backend.NewClient(*server, tok, c.cfg.Server.Timeout())
	pub, err := cl.Publish(ctx, h.Presentation)
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventPublished, map[string]any{"slides": pub.Slides})
	fmt.Fprintf(c.stdout, "Published %q as %s\n", pub.Title, pub.ID)
	fmt.Fprintf(c.stdout, "%s/api/decks/%s/pdf\n", strings.TrimRight(*server, "/"), pub.ID)
	return nil
}

func (c *cli) cmdUI(args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	opt := ui.Options{
		DeckPath:          path,
		Editor:            c.editorOptions(),
		Autosave:          c.cfg.Editor.AutosaveInterval(),
		PresentationWidth: c.cfg.Editor.PresentationWidth,
	}
	return ui.Run(opt)
}

func withDeckExt(path string) string {
	if strings.HasSuffix(path, storage.DeckExt) {
		return path
	}
	return path + storage.DeckExt
}
