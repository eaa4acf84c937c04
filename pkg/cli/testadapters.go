package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/constants"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/testutil"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run test suites",
	}
	cmd.AddCommand(newTestAdaptersCommand())
	return cmd
}

func newTestAdaptersCommand() *cobra.Command {
	var agent string
	var update bool

	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "Run adapter golden fixtures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdTestAdapters(ctx, agent, update)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Only run fixtures for this adapter")
	cmd.Flags().BoolVar(&update, "update", false, "Rewrite golden trees from actual outputs")
	return cmd
}

func cmdTestAdapters(ctx *appContext, agent string, update bool) error {
	fixturesDir := filepath.Join(ctx.RepoRoot, "fixtures")
	info, err := os.Stat(fixturesDir)
	if err != nil || !info.IsDir() {
		return &AppError{
			Category: CategoryIo,
			Message:  "fixtures directory not found",
			Context:  []string{"path: " + fixturesDir},
		}
	}

	if update && !updateGoldensAllowed() {
		return invalidArgs("refusing to update goldens without "+constants.UpdateGoldensEnv+"=1",
			fmt.Sprintf("hint: rerun with `%s=1 agents test adapters --update`", constants.UpdateGoldensEnv))
	}

	entries, err := os.ReadDir(fixturesDir)
	if err != nil {
		return ioError(err)
	}
	var fixtures []string
	for _, e := range entries {
		if e.IsDir() {
			fixtures = append(fixtures, filepath.Join(fixturesDir, e.Name()))
		}
	}
	sort.Strings(fixtures)

	if update {
		return updateGoldens(fixtures, agent)
	}

	// Fixtures are independent; fan out one task per fixture directory,
	// with at most GOMAXPROCS tasks running at a time.
	var mu sync.Mutex
	var passed, failed int
	var failures []string
	var runErr error

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg conc.WaitGroup
	for _, fixture := range fixtures {
		fixture := fixture
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()
			report, err := testutil.RunFixture(fixture, agent)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if runErr == nil {
					runErr = err
				}
				return
			}
			passed += report.Passed
			failed += report.Failed
			for i := range report.Failures {
				failures = append(failures, report.Failures[i].RenderHuman())
			}
		})
	}
	wg.Wait()

	if runErr != nil {
		return ioError(runErr)
	}

	if len(failures) == 0 {
		fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("adapter fixtures passed (passed=%d)", passed)))
		return nil
	}

	sort.Strings(failures)
	for _, f := range failures {
		fmt.Print(f)
	}
	return &AppError{
		Category: CategoryIo,
		Message:  fmt.Sprintf("adapter fixtures failed (passed=%d failed=%d)", passed, failed),
		Context:  []string{"hint: inspect actual output paths above"},
	}
}

func updateGoldensAllowed() bool {
	v := os.Getenv(constants.UpdateGoldensEnv)
	return v == "1" || strings.EqualFold(v, "true")
}

func updateGoldens(fixtures []string, agent string) error {
	updated := 0
	for _, fixture := range fixtures {
		report, err := testutil.RunFixture(fixture, agent)
		if err != nil {
			return ioError(fmt.Errorf("fixture %s: %w", fixture, err))
		}

		hasMatrix := false
		if _, err := os.Stat(filepath.Join(fixture, "matrix.yaml")); err == nil {
			hasMatrix = true
		}

		for _, failure := range report.Failures {
			expectDir := filepath.Join(fixture, "expect", failure.AgentID)
			if hasMatrix {
				expectDir = filepath.Join(expectDir, failure.Case)
			}

			if err := os.RemoveAll(expectDir); err != nil {
				return ioError(err)
			}
			if err := copyTree(failure.ActualDir, expectDir); err != nil {
				return ioError(err)
			}
			os.RemoveAll(failure.ActualDir)
			updated++
			fmt.Println(console.FormatSuccessMessage("update: " + expectDir))
		}
	}

	fmt.Println(console.FormatInfoMessage(fmt.Sprintf("updated goldens (cases=%d)", updated)))
	return nil
}

func copyTree(src, dst string) error {
	files, err := fsutil.WalkFiles(src)
	if err != nil {
		return err
	}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		if err := fsutil.AtomicWrite(filepath.Join(dst, filepath.FromSlash(rel)), data); err != nil {
			return err
		}
	}
	return nil
}
