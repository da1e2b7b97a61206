package main

import (
	"fmt"
	"os"
	"path"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/castorvcs/castor/pkg/checkout"
	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/filesystem"
	"github.com/castorvcs/castor/pkg/gitio"
	"github.com/castorvcs/castor/pkg/repo"
	"github.com/castorvcs/castor/pkg/types"
)

var (
	flagForce           bool
	flagDryRun          bool
	flagRecreateMissing bool
	flagRemoveUntracked bool
	flagRemoveIgnored   bool
	flagUpdateOnly      bool
	flagNoRefresh       bool
	flagSkipUnmerged    bool
	flagOurs            bool
	flagTheirs          bool
	flagLiteralPaths    bool
	flagSkipLocked      bool
	flagNoIndex         bool
	flagNoIndexWrite    bool
	flagTargetDir       string
	flagGitDir          string
	flagQuiet           bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create an empty repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		if _, err := repo.Init(nil, dir); err != nil {
			return err
		}
		fmt.Printf("Initialized empty repository in %s\n", path.Join(dir, repo.StateDirName))
		return nil
	},
}

var headCmd = &cobra.Command{
	Use:   "head [path...]",
	Short: "Check out the current HEAD tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		summary, err := checkout.Head(r, buildOptions(args))
		if err != nil {
			return err
		}
		reportSummary(summary)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <revision> [path...]",
	Short: "Check out the tree a revision resolves to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		id, err := resolveRevision(r, args[0])
		if err != nil {
			return err
		}
		summary, err := checkout.Tree(r, id, buildOptions(args[1:]))
		if err != nil {
			return err
		}
		reportSummary(summary)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{headCmd, treeCmd} {
		fl := cmd.Flags()
		fl.BoolVarP(&flagForce, "force", "f", false, "Overwrite local modifications and restore deleted files")
		fl.BoolVarP(&flagDryRun, "dry-run", "n", false, "Report what would change without touching anything")
		fl.BoolVar(&flagRecreateMissing, "recreate-missing", false, "Restore files deleted from the working directory")
		fl.BoolVar(&flagRemoveUntracked, "remove-untracked", false, "Delete untracked files and directories")
		fl.BoolVar(&flagRemoveIgnored, "remove-ignored", false, "Delete ignored files and directories")
		fl.BoolVar(&flagUpdateOnly, "update-only", false, "Only update paths that already exist on disk")
		fl.BoolVar(&flagNoRefresh, "no-refresh", false, "Trust the index stat cache without revalidating it")
		fl.BoolVar(&flagSkipUnmerged, "skip-unmerged", false, "Skip paths with unresolved conflicts")
		fl.BoolVar(&flagOurs, "ours", false, "Resolve conflicted paths with our side")
		fl.BoolVar(&flagTheirs, "theirs", false, "Resolve conflicted paths with their side")
		fl.BoolVar(&flagLiteralPaths, "literal-paths", false, "Treat path arguments literally instead of as patterns")
		fl.BoolVar(&flagSkipLocked, "skip-locked", false, "Skip directories that are in use instead of failing")
		fl.BoolVar(&flagNoIndex, "no-index", false, "Leave the index untouched")
		fl.BoolVar(&flagNoIndexWrite, "no-index-write", false, "Update the index in memory but do not persist it")
		fl.StringVar(&flagTargetDir, "target-dir", "", "Check out into this directory instead of the working directory")
		fl.StringVar(&flagGitDir, "git", "", "Read objects from this git repository instead of a native store")
		fl.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress per-path output")
	}
}

func buildStrategy() types.Strategy {
	var s types.Strategy
	set := func(on bool, f types.Strategy) {
		if on {
			s |= f
		}
	}
	set(flagForce, types.Force)
	set(flagDryRun, types.DryRun)
	set(flagRecreateMissing, types.RecreateMissing)
	set(flagRemoveUntracked, types.RemoveUntracked)
	set(flagRemoveIgnored, types.RemoveIgnored)
	set(flagUpdateOnly, types.UpdateOnly)
	set(flagNoRefresh, types.NoRefresh)
	set(flagSkipUnmerged, types.SkipUnmerged)
	set(flagOurs, types.UseOurs)
	set(flagTheirs, types.UseTheirs)
	set(flagLiteralPaths, types.DisablePathspecMatch)
	set(flagSkipLocked, types.SkipLockedDirectories)
	set(flagNoIndex, types.DontUpdateIndex)
	set(flagNoIndexWrite, types.DontWriteIndex)
	return s
}

func buildOptions(paths []string) checkout.Options {
	opts := checkout.Options{
		Strategy:        buildStrategy(),
		Paths:           paths,
		TargetDirectory: flagTargetDir,
	}
	if !flagQuiet {
		opts.NotifyFlags = types.NotifyConflict | types.NotifyDirty
		opts.Notify = func(kind types.NotifyKind, p string, _, _, _ *types.Entry) types.NotifyResult {
			switch kind {
			case types.NotifyConflict:
				printWarn("conflict: %s", p)
			case types.NotifyDirty:
				printWarn("modified, keeping local version: %s", p)
			}
			return types.Continue()
		}
		opts.Progress = progressReporter()
	}
	return opts
}

// progressReporter renders a progress bar on terminals and stays silent
// elsewhere. The bar is created on the first callback, once the total is
// known.
func progressReporter() types.ProgressFunc {
	if !terminal() {
		return nil
	}
	var bar *pterm.ProgressbarPrinter
	return func(p string, completed, total int) {
		if total == 0 {
			return
		}
		if bar == nil {
			bar, _ = pterm.DefaultProgressbar.WithTotal(total).WithTitle("checking out").Start()
		}
		if p == "" {
			return
		}
		bar.UpdateTitle(p)
		bar.Increment()
		if completed == total {
			_, _ = bar.Stop()
		}
	}
}

func openRepo() (*repo.Repository, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFilesystem, "getting working directory")
	}
	if flagGitDir != "" {
		store, err := gitio.Open(flagGitDir)
		if err != nil {
			return nil, err
		}
		return repo.New(repo.Params{
			FS:      filesystem.NewOS(),
			Workdir: wd,
			Store:   store,
			Refs:    store,
		})
	}
	return repo.Open(nil, wd)
}

func resolveRevision(r *repo.Repository, rev string) (types.ObjectID, error) {
	if gs, ok := r.Store.(*gitio.Store); ok {
		return gs.ResolveRev(rev)
	}
	if rev == "HEAD" && r.Refs != nil {
		return r.Refs.Head()
	}
	return types.ObjectID(rev), nil
}

func reportSummary(s *checkout.Summary) {
	if flagQuiet {
		return
	}
	c := s.Counters
	msg := fmt.Sprintf("created %d, updated %d, removed %d", c.Created, c.Updated, c.Removed)
	if flagDryRun {
		msg = "dry run: would have " + msg
	}
	if terminal() {
		pterm.Success.Println(msg)
	} else {
		fmt.Println(msg)
	}
}

func printWarn(format string, args ...interface{}) {
	if terminal() {
		pterm.Warning.Printfln(format, args...)
	} else {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func formatError(err error) string {
	msg := err.Error()
	if n := errors.ConflictCount(err); n > 0 {
		msg = fmt.Sprintf("%d conflict(s) prevent checkout (use --force to overwrite)", n)
	}
	if terminal() {
		return pterm.Error.Sprint(msg)
	}
	return "Error: " + msg
}

func terminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
