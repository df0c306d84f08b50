package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mystery_story_studio/generator"
	"mystery_story_studio/publisher"
	"mystery_story_studio/server"
)

var (
	serveAddr string

	reviseInstructions []string
	exportDoc          bool
	exportWAV          bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	writeCmd = &cobra.Command{
		Use:   "write PREMISE",
		Short: "Write a story without the TUI, streaming it to stdout",
		Example: `  storystudio write "Un faro que se enciende solo" --revise "Hazlo más corto" --doc
  storystudio write "Una casa que recuerda" --wav`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWrite,
	}

	ideaCmd = &cobra.Command{
		Use:   "idea",
		Short: "Print a story premise",
		Args:  cobra.NoArgs,
		RunE:  runIdea,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
	writeCmd.Flags().StringArrayVar(&reviseInstructions, "revise", nil, "revision instruction, may be repeated")
	writeCmd.Flags().BoolVar(&exportDoc, "doc", false, "export the final story as .doc")
	writeCmd.Flags().BoolVar(&exportWAV, "wav", false, "export the narrated story as .wav")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger(os.Stderr)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	st, err := buildStudio(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	srv, err := server.New(st.agent, st.narrator, st.pub, logger)
	if err != nil {
		return err
	}

	listen := cfg.ServerAddr
	if serveAddr != "" {
		listen = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting web server", "addr", listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// streamPrinter writes the growing story to w as snapshots arrive.
type streamPrinter struct {
	w       io.Writer
	printed string
}

func (p *streamPrinter) update(snap generator.Snapshot) {
	if !strings.HasPrefix(snap.Story, p.printed) {
		// buffer was cleared or restored
		fmt.Fprintln(p.w)
		p.printed = ""
	}
	if rest := snap.Story[len(p.printed):]; rest != "" && snap.Busy() {
		fmt.Fprint(p.w, rest)
		p.printed = snap.Story
	}
}

func runWrite(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	st, err := buildStudio(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess := generator.NewSession(uuid.New().String(), st.agent, st.narrator, logger)
	printer := &streamPrinter{w: out}
	cancel := sess.Subscribe(printer.update)
	defer cancel()

	if err := sess.BeginGeneration(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	for _, instruction := range reviseInstructions {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n--- %s\n", instruction)
		if err := sess.BeginRevision(ctx, instruction); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)

	story := sess.Snapshot().Story
	if exportDoc {
		if err := publishTo(ctx, cmd.ErrOrStderr(), st.pub, publisher.DocumentArtifact(story)); err != nil {
			return err
		}
	}
	if exportWAV {
		narration, err := sess.GenerateAudio(ctx)
		if err != nil {
			return err
		}
		a, err := publisher.AudioArtifact(narration)
		if err != nil {
			return err
		}
		if err := publishTo(ctx, cmd.ErrOrStderr(), st.pub, a); err != nil {
			return err
		}
	}
	return nil
}

func publishTo(ctx context.Context, w io.Writer, pub *publisher.Publisher, a publisher.Artifact) error {
	location, err := pub.Publish(ctx, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s) -> %s\n", a.Name, humanize.Bytes(uint64(len(a.Data))), location)
	return nil
}

func runIdea(cmd *cobra.Command, _ []string) error {
	logger := newLogger(os.Stderr)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	llm, err := buildLLM(cmd.Context(), cfg.LLM)
	if err != nil {
		return err
	}
	agent, err := generator.NewAgent(llm)
	if err != nil {
		return err
	}
	idea, err := agent.Idea(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), idea)
	return nil
}
