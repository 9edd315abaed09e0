// Package cli implements the layoutkit CLI commands.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/layoutkit/internal/builder"
	"github.com/rcliao/layoutkit/internal/config"
	"github.com/rcliao/layoutkit/internal/logging"
	"github.com/rcliao/layoutkit/internal/model"
	"github.com/rcliao/layoutkit/internal/ocr"
	"github.com/rcliao/layoutkit/internal/service"
	"github.com/rcliao/layoutkit/internal/store"
)

var (
	configPath    string
	dbPath        string
	workspaceName string
	formatFlag    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "layoutkit",
	Short: "Workspace templates from text, screenshots and live workspaces",
	Long: "Turn free-form channel layouts and screenshots into workspace templates, " +
		"apply them to a workspace and export workspaces back into templates.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $LAYOUTKIT_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $LAYOUTKIT_DB or ~/.layoutkit/workspaces.db)")
	RootCmd.PersistentFlags().StringVarP(&workspaceName, "workspace", "w", "", "Workspace name (default: $LAYOUTKIT_WORKSPACE or config)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
}

// env is what a command needs once flags and config are resolved.
type env struct {
	cfg *config.Config
	log *logging.Logger
	svc *service.Service
}

func setup() *env {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	if workspaceName != "" {
		cfg.Workspace = workspaceName
	}
	if err := cfg.Validate(); err != nil {
		exitErr("config", err)
	}

	log, err := logging.New().Level(cfg.Log.Level).Format(cfg.Log.Format).ToFile(cfg.Log.File).Make()
	if err != nil {
		exitErr("logger", err)
	}

	analyzer := ocr.NewAnalyzer(ocr.NewFromConfig(cfg.OCR),
		ocr.WithMaxBytes(cfg.OCR.MaxBytes),
		ocr.WithLogger(log.Logger),
	)
	svc := service.New(
		service.WithAnalyzer(analyzer),
		service.WithLogger(log.Logger),
		service.WithConcurrency(cfg.Materialize.Concurrency),
	)
	return &env{cfg: cfg, log: log, svc: svc}
}

func (e *env) Close() {
	e.log.Close()
}

func (e *env) openStore() *store.SQLiteStore {
	s, err := store.NewSQLiteStore(e.cfg.DB)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	if errors.Is(err, builder.ErrTemplateInvalid) {
		os.Exit(2)
	}
	os.Exit(1)
}

// readInput reads the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return b, "", err
	}
	b, err := os.ReadFile(args[0])
	return b, args[0], err
}

// templateFormat picks the decoder for a template file: by extension when
// there is a name, else by the first non-space byte.
func templateFormat(name string, data []byte) model.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return model.FormatYAML
	case ".json":
		return model.FormatJSON
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return model.FormatJSON
	}
	return model.FormatYAML
}

func readTemplate(cmd *cobra.Command, args []string) model.Template {
	data, name, err := readInput(cmd, args)
	if err != nil {
		exitErr("read template", err)
	}
	t, err := model.Decode(bytes.NewReader(data), templateFormat(name, data))
	if err != nil {
		exitErr("read template", err)
	}
	return t
}

// writeTemplate prints t in the --format encoding; text prints a preview.
func writeTemplate(w io.Writer, t model.Template) error {
	if formatFlag == "text" {
		_, err := io.WriteString(w, service.Preview(t))
		return err
	}
	f, err := model.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	return model.Encode(w, t, f)
}

// writeValue prints v as indented JSON, or YAML with --format yaml.
func writeValue(w io.Writer, v any) error {
	f := model.FormatJSON
	if formatFlag == "yaml" {
		f = model.FormatYAML
	}
	return model.EncodeValue(w, v, f)
}
