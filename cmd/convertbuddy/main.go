// Command convertbuddy is a CLI front end over the convert package: it
// reads a document in one structured format and streams it out in
// another, optionally reshaping records through a declarative transform.
//
// Grounded on MacroPower-x/cmd/magicschema's root-command/RegisterFlags
// shape (cobra + pflag, a single RunE doing the real work) and on
// MacroPower-x/cmd/ansi_video_renderer's bubbletea model fed by a
// background producer over a channel (here: Options.OnProgress instead of
// a frame reader).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	convert "github.com/convert-buddy/core"
	"github.com/convert-buddy/core/internal/logcfg"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := newCLIConfig()
	logCfg := logcfg.NewConfig()

	rootCmd := &cobra.Command{
		Use:           "convertbuddy <input>",
		Short:         "Stream-convert DSV/NDJSON/JSON/XML documents",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			inputPath := "-"
			if len(args) == 1 {
				inputPath = args[0]
			}
			return runConvert(cfg, logCfg, inputPath)
		},
	}

	cfg.registerFlags(rootCmd.Flags())
	logCfg.RegisterFlags(rootCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "convertbuddy: %v\n", err)
		return 1
	}
	return 0
}

// cliConfig holds the flag-bound CLI surface. Document-shaped
// configuration (Options/TransformSpec) is loaded separately from
// --config/--transform files, then overlaid with these flags.
type cliConfig struct {
	output        string
	configPath    string
	transformPath string
	inputFormat   string
	outputFormat  string
	tui           bool
	profile       bool
	debug         bool
}

func newCLIConfig() *cliConfig {
	return &cliConfig{output: "-"}
}

func (c *cliConfig) registerFlags(flags interface {
	StringVar(*string, string, string, string)
	BoolVar(*bool, string, bool, string)
}) {
	flags.StringVar(&c.output, "output", c.output, "output path, or - for stdout")
	flags.StringVar(&c.configPath, "config", "", "YAML file with Options (chunking, per-format tuning)")
	flags.StringVar(&c.transformPath, "transform", "", "YAML/JSON file with a TransformSpec document")
	flags.StringVar(&c.inputFormat, "input-format", "auto", "dsv|ndjson|json|xml|auto")
	flags.StringVar(&c.outputFormat, "output-format", "", "dsv|ndjson|json|xml")
	flags.BoolVar(&c.tui, "tui", false, "show a live progress view instead of plain stderr logging")
	flags.BoolVar(&c.profile, "profile", false, "record per-stage timing in Stats")
	flags.BoolVar(&c.debug, "debug", false, "log a trace of every record")
}

// configDoc mirrors the subset of convert.Options a host document can set.
// goccy/go-yaml unmarshals directly into it; fields absent from the
// document keep cliConfig's flag-derived zero values.
type configDoc struct {
	ChunkTargetBytes      int                  `yaml:"chunkTargetBytes"`
	MaxMemoryMB           int                  `yaml:"maxMemoryMB"`
	MaxBufferBytes        int                  `yaml:"maxBufferBytes"`
	ProgressIntervalBytes int64                `yaml:"progressIntervalBytes"`
	DSV                   convert.DSVOptions   `yaml:"dsv"`
	XML                   convert.XMLOptions   `yaml:"xml"`
	JSON                  convert.JSONOptions  `yaml:"json"`
}

func runConvert(c *cliConfig, logCfg *logcfg.Config, inputPath string) error {
	var logWriter io.Writer = os.Stderr
	if c.tui {
		// A TUI owns the terminal's alt-screen buffer; writing plain log
		// lines to stderr alongside it would corrupt the rendered view, so
		// logs go to a sibling file instead while --tui is active.
		f, err := os.OpenFile("convertbuddy.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logWriter = f
	}
	handler, err := logCfg.NewHandler(logWriter)
	if err != nil {
		return err
	}
	logger := slog.New(handler)

	opts := convert.Options{
		InputFormat:  convert.Format(c.inputFormat),
		OutputFormat: convert.Format(c.outputFormat),
		Profile:      c.profile,
		Debug:        c.debug,
		Logger:       logger,
	}

	if c.configPath != "" {
		doc, err := loadConfigDoc(c.configPath)
		if err != nil {
			return err
		}
		opts.ChunkTargetBytes = doc.ChunkTargetBytes
		opts.MaxMemoryMB = doc.MaxMemoryMB
		opts.MaxBufferBytes = doc.MaxBufferBytes
		opts.ProgressIntervalBytes = doc.ProgressIntervalBytes
		opts.DSV = doc.DSV
		opts.XML = doc.XML
		opts.JSON = doc.JSON
	}

	if c.transformPath != "" {
		spec, err := loadTransformSpec(c.transformPath)
		if err != nil {
			return err
		}
		opts.Transform = spec
	}

	in, closeIn, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	out, closeOut, err := openOutput(c.output)
	if err != nil {
		return err
	}
	defer closeOut()

	if c.tui {
		return runWithTUI(in, out, opts)
	}
	return runPlain(in, out, opts, logger)
}

func loadConfigDoc(path string) (*configDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var doc configDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &doc, nil
}

// loadTransformSpec parses a TransformSpec document and validates it
// against a schema derived from the Go type via jsonschema-go's
// reflection-based generator, so a malformed document fails with a
// schema-shaped error before a single record is ever converted.
func loadTransformSpec(path string) (*convert.TransformSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transform: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse transform: %w", err)
	}

	schema, err := jsonschema.For[convert.TransformSpec](nil)
	if err != nil {
		return nil, fmt.Errorf("derive transform schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve transform schema: %w", err)
	}
	if err := resolved.Validate(doc); err != nil {
		return nil, fmt.Errorf("transform document invalid: %w", err)
	}

	var spec convert.TransformSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode transform: %w", err)
	}
	return &spec, nil
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" || path == "" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" || path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

// runPlain drives the kernel chunk by chunk, writing each returned slice
// immediately and logging a one-line progress summary via OnProgress.
func runPlain(in io.Reader, out io.Writer, opts convert.Options, logger *slog.Logger) error {
	opts.OnProgress = func(s convert.Stats) {
		logger.Info("progress",
			"bytesIn", s.BytesIn, "bytesOut", s.BytesOut,
			"recordsProcessed", s.RecordsProcessed, "recordsFiltered", s.RecordsFiltered)
	}

	k, err := convert.NewKernel(opts)
	if err != nil {
		return err
	}

	buf := make([]byte, chunkSize(opts))
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			chunk, pushErr := k.Push(buf[:n])
			if pushErr != nil {
				return pushErr
			}
			if _, err := out.Write(chunk); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	final, err := k.Finish()
	if err != nil {
		return err
	}
	_, err = out.Write(final)
	return err
}

func chunkSize(opts convert.Options) int {
	if opts.ChunkTargetBytes > 0 {
		return opts.ChunkTargetBytes
	}
	return 1 << 20
}

// runWithTUI wraps the same chunk-at-a-time loop in a bubbletea program
// that redraws a progress bar as Options.OnProgress delivers Stats over a
// channel — the same "background producer feeds tea.Msg over a channel"
// shape ansi_video_renderer uses for video frames.
func runWithTUI(in io.Reader, out io.Writer, opts convert.Options) error {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 {
		cols = 80
	}

	msgs := make(chan convert.Stats, 8)
	done := make(chan error, 1)

	opts.OnProgress = func(s convert.Stats) {
		select {
		case msgs <- s:
		default:
		}
	}

	discardLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- runPlain(in, out, opts, discardLogger)
		close(msgs)
	}()

	p := tea.NewProgram(newProgressModel(cols, msgs, done))
	_, err = p.Run()
	if err != nil {
		return err
	}
	return <-done
}

type statsMsg convert.Stats

type doneMsg struct{ err error }

type progressModel struct {
	cols   int
	msgs   <-chan convert.Stats
	done   <-chan error
	stats  convert.Stats
	err    error
	finished bool
}

func newProgressModel(cols int, msgs <-chan convert.Stats, done <-chan error) *progressModel {
	return &progressModel{cols: cols, msgs: msgs, done: done}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.waitForStats(), m.waitForDone())
}

func (m *progressModel) waitForStats() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.msgs
		if !ok {
			return nil
		}
		return statsMsg(s)
	}
}

func (m *progressModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-m.done}
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case statsMsg:
		m.stats = convert.Stats(msg)
		return m, m.waitForStats()
	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) View() tea.View {
	bar := renderBar(m.cols-2, m.stats)
	status := "converting..."
	if m.finished {
		status = "done"
		if m.err != nil {
			status = "failed: " + m.err.Error()
		}
	}
	body := fmt.Sprintf("%s\n%s\nbytesIn=%d bytesOut=%d records=%d filtered=%d\n",
		status, bar, m.stats.BytesIn, m.stats.BytesOut,
		m.stats.RecordsProcessed, m.stats.RecordsFiltered)
	v := tea.NewView(body)
	v.AltScreen = true
	return v
}

func renderBar(width int, s convert.Stats) string {
	if width < 10 {
		width = 10
	}
	filled := 0
	if s.BytesIn > 0 {
		filled = int(float64(width) * float64(s.BytesOut) / float64(s.BytesIn+1))
	}
	if filled > width {
		filled = width
	}
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = ' '
		}
	}
	return "[" + string(bar) + "]"
}

