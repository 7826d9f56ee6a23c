// Command groovy-lsp is the CLI entry point: serve runs the Language
// Server Protocol server, classpath/deps print resolved dependency
// classpaths, and index scans a directory's sources up front.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/groovy-lsp/internal/core"
	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
	"github.com/albertocavalcante/groovy-lsp/internal/gradleresolve"
	"github.com/albertocavalcante/groovy-lsp/internal/lspserver"
	"github.com/albertocavalcante/groovy-lsp/internal/pom"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "groovy-lsp",
		Short: "A Groovy Language Server",
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newClasspathCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newDepsCmd())
	rootCmd.AddCommand(newParseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Language Server Protocol server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lspserver.New(version)
			return server.RunStdio()
		},
	}
}

func newClasspathCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "classpath",
		Short: "Print the resolved classpath for a Maven or Gradle project",
		Long: `Print the classpath as a colon-separated list of JAR paths.

If pom.xml exists in the project directory, dependencies are resolved
from it (requires network access to download POMs). Otherwise, if a
build.gradle or build.gradle.kts exists, its "dependencies { }" block is
scanned for coordinates instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasspath(dir)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "project directory")
	return cmd
}

func runClasspath(dir string) error {
	resolution, err := resolveWorkspace(context.Background(), dir)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(resolution.Dependencies, ":"))
	return nil
}

func resolveWorkspace(ctx context.Context, dir string) (*pom.WorkspaceResolution, error) {
	switch {
	case pom.IsProjectRoot(dir):
		return pom.NewProjectResolver().Resolve(ctx, dir)
	case gradleresolve.IsProjectRoot(dir):
		return gradleresolve.New("").Resolve(ctx, dir)
	default:
		return nil, fmt.Errorf("no pom.xml or build.gradle(.kts) found in %s", dir)
	}
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <dir>",
		Short: "Index a directory's Groovy sources up front",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(args[0])
		},
	}
}

func runIndex(dir string) error {
	c := core.New(core.Options{})

	var resolveErr error
	done := make(chan struct{})
	if err := c.Open(dir, func(percent int, message string) {
		fmt.Printf("[%3d%%] %s\n", percent, message)
	}, func(res *pom.WorkspaceResolution) {
		fmt.Printf("Resolved %d dependencies\n", len(res.Dependencies))
		close(done)
	}, func(err error) {
		resolveErr = err
		close(done)
	}); err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer c.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timed out waiting for dependency resolution")
	}
	if resolveErr != nil {
		fmt.Printf("dependency resolution failed: %v (indexing sources anyway)\n", resolveErr)
	}

	sources := c.Workspace.WorkspaceSources()
	fmt.Printf("Found %d source files\n", len(sources))

	ctx := context.Background()
	read := func(uri position.URI) (string, error) {
		data, err := os.ReadFile(uri.Path())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var indexErrors int
	err := c.Compiler.IndexAllWorkspaceSources(ctx, sources, read,
		func(done, total int) {
			fmt.Printf("[%d/%d] indexed\n", done, total)
		},
		func(uri position.URI, err error) {
			indexErrors++
			fmt.Printf("  error indexing %s: %v\n", filepath.Base(uri.Path()), err)
		},
	)
	if err != nil {
		return fmt.Errorf("index workspace: %w", err)
	}

	fmt.Printf("\n=== INDEX COMPLETE ===\n")
	fmt.Printf("Files indexed: %d\n", len(sources))
	fmt.Printf("Errors: %d\n", indexErrors)
	return nil
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse one Groovy source file and dump its syntax tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0])
		},
	}
}

func runParse(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p := gparse.ParseCompilationUnit(f, gparse.WithFile(path), gparse.WithPositions())
	root := p.Finish()

	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal syntax tree: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func newDepsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Resolve and print dependency coordinates with state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(dir)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "project directory")
	return cmd
}

func runDeps(dir string) error {
	c := core.New(core.Options{})

	done := make(chan struct{})
	var resolveErr error
	if err := c.Open(dir, nil, func(res *pom.WorkspaceResolution) {
		close(done)
	}, func(err error) {
		resolveErr = err
		close(done)
	}); err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer c.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timed out waiting for dependency resolution")
	}

	fmt.Printf("state: %s\n", c.DepManager.State())
	if resolveErr != nil {
		fmt.Printf("error: %v\n", resolveErr)
		return nil
	}
	for _, d := range c.DepManager.CurrentDependencies() {
		fmt.Println(d)
	}
	return nil
}
