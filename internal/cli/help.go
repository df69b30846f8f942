package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultPager is used when $PAGER is unset or blank.
const DefaultPager = "less"

// PagerFunc runs a pager on the given arguments with inherited stdio and
// waits for it. Only a failure to start is an error.
type PagerFunc func(ctx context.Context, name string, args []string) error

// runPager is not bound to ctx: an interrupt typed inside the pager belongs
// to the pager, which must be left to restore the terminal itself.
func runPager(_ context.Context, name string, args []string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}
	// the pager's own exit status is not ours
	_ = cmd.Wait()
	return nil
}

// helpCandidates lists the documentation paths for topic, most specific
// first. configDir may be empty.
func helpCandidates(topic, configDir, docsRoot string) []string {
	file := topic + ".md"

	var paths []string
	if configDir != "" {
		paths = append(paths,
			filepath.Join(configDir, "docs", "plugins", file),
			filepath.Join(configDir, "docs", file),
		)
	}
	return append(paths,
		filepath.Join(docsRoot, file),
		filepath.Join(docsRoot, "plugins", file),
		filepath.Join(docsRoot, "deprecated", file),
	)
}

// resolveHelp returns the first existing candidate, or "" when none exist.
func resolveHelp(candidates []string) string {
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// pagerCommand splits $PAGER into a program and its leading arguments and
// appends path.
func pagerCommand(pagerEnv, path string) (string, []string) {
	fields := strings.Fields(pagerEnv)
	if len(fields) == 0 {
		return DefaultPager, []string{path}
	}
	args := append(fields[1:len(fields):len(fields)], path)
	return fields[0], args
}

func (d *dispatcher) help(ctx context.Context) error {
	if d.opts.HelpTopic == "" {
		fmt.Fprintln(d.env.Stdout, Usage)
		return nil
	}

	path := resolveHelp(helpCandidates(d.opts.HelpTopic, d.opts.ConfigPath, d.env.DocsRoot))
	if path == "" {
		writeWarning(d.env.Stderr, "No documentation found for: "+d.opts.HelpTopic)
		return nil
	}

	name, args := pagerCommand(d.env.Getenv("PAGER"), path)
	if err := d.env.Pager(ctx, name, args); err != nil {
		return &ExitError{
			Code: ExitFailure,
			Err:  fmt.Errorf("%w %q: %w", ErrPagerFailed, name, err),
		}
	}
	return nil
}

// builtinDocsRoot is $QSTAT_DOCS, or the docs directory next to the binary.
func builtinDocsRoot(getenv func(string) string) string {
	if dir := getenv("QSTAT_DOCS"); dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "docs"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "docs")
}
