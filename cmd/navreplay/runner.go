package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/renderer/loopback"
)

// Runner applies script steps to one tab
type Runner struct {
	renderer *loopback.Renderer
	tabs     *tab.Manager
	tab      *tab.Tab
	script   *Script
	out      io.Writer
	quiet    bool
}

// NewRunner creates a tab backed by a loopback renderer
func NewRunner(cfg *config.Config, script *Script, out io.Writer, log *zap.Logger) (*Runner, error) {
	r := &Runner{
		renderer: loopback.New(cfg.Renderer, log),
		script:   script,
		out:      out,
	}
	r.tabs = tab.NewManager(cfg.Navigation, r.renderer, log)
	t, err := r.tabs.Create()
	if err != nil {
		return nil, err
	}
	r.tab = t
	return r, nil
}

// Close stops the tab and waits for in-flight loads
func (r *Runner) Close() {
	r.tabs.CloseAll()
	r.renderer.Wait()
}

// Run applies every step, printing the history after each. It stops at
// the first failed step or expectation.
func (r *Runner) Run(ctx context.Context) error {
	if r.script.Name != "" && !r.quiet {
		fmt.Fprintf(r.out, "# %s\n", r.script.Name)
	}
	for i, step := range r.script.Steps {
		if err := r.apply(ctx, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		r.renderer.Wait()

		st, err := r.tab.Snapshot(ctx)
		if err != nil {
			return err
		}
		if !r.quiet {
			fmt.Fprintf(r.out, "\n%d. %s\n", i+1, describe(step))
			printHistory(r.out, st)
		}
		if step.Expect != nil {
			if err := check(st, step.Expect); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
			}
		}
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, step Step) error {
	var (
		ok  = true
		err error
	)
	switch step.Op {
	case "load":
		ok, err = r.tab.Navigate(ctx, r.script.resolve(step.URL))
	case "back":
		ok, err = r.tab.History(ctx, tab.HistoryBack, 0)
	case "forward":
		ok, err = r.tab.History(ctx, tab.HistoryForward, 0)
	case "go":
		ok, err = r.tab.History(ctx, tab.HistoryOffset, step.N)
	case "reload":
		kind := navigation.ReloadNormal
		if step.Mode == "ignoring_cache" {
			kind = navigation.ReloadIgnoringCache
		}
		ok, err = r.tab.Reload(ctx, kind, false)
	case "stop":
		err = r.tab.Stop(ctx)
	case "push", "replace":
		frameID, ferr := r.frameID(ctx, step.Frame)
		if ferr != nil {
			return ferr
		}
		var res tab.CommitResult
		if step.Op == "push" {
			res, err = r.renderer.PushState(ctx, r.tab, frameID, r.script.resolve(step.URL))
		} else {
			res, err = r.renderer.ReplaceState(ctx, r.tab, frameID, r.script.resolve(step.URL))
		}
		ok = res.Accepted
	case "fragment":
		frameID, ferr := r.frameID(ctx, step.Frame)
		if ferr != nil {
			return ferr
		}
		var res tab.CommitResult
		res, err = r.renderer.FragmentNavigate(ctx, r.tab, frameID, step.Name)
		ok = res.Accepted
	case "iframe":
		parentID, ferr := r.frameID(ctx, step.Frame)
		if ferr != nil {
			return ferr
		}
		src := step.URL
		if src != "" {
			src = r.script.resolve(src)
		}
		_, err = r.renderer.CreateIframe(ctx, r.tab, parentID, step.Name, src)
	case "remove":
		frameID, ferr := r.frameID(ctx, step.Frame)
		if ferr != nil {
			return ferr
		}
		err = r.renderer.RemoveIframe(ctx, r.tab, frameID)
	case "navigate":
		frameID, ferr := r.frameID(ctx, step.Frame)
		if ferr != nil {
			return ferr
		}
		ok, err = r.renderer.NavigateFrame(ctx, r.tab, frameID, r.script.resolve(step.URL))
	case "expect":
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(r.out, "   (%s ignored)\n", step.Op)
	}
	return nil
}

// frameID finds a frame by name; empty is the main frame
func (r *Runner) frameID(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	st, err := r.tab.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range st.Frames {
		if f.Name == name {
			return f.ID, nil
		}
	}
	return 0, fmt.Errorf("no frame named %q", name)
}

func check(st tab.State, want *Expect) error {
	if want.URL != "" && st.URL != want.URL {
		return fmt.Errorf("url = %q, want %q", st.URL, want.URL)
	}
	if want.Title != "" && st.Title != want.Title {
		return fmt.Errorf("title = %q, want %q", st.Title, want.Title)
	}
	if want.Entries != nil && len(st.Entries) != *want.Entries {
		return fmt.Errorf("entries = %d, want %d", len(st.Entries), *want.Entries)
	}
	if want.Index != nil && st.LastCommittedIndex != *want.Index {
		return fmt.Errorf("index = %d, want %d", st.LastCommittedIndex, *want.Index)
	}
	if want.Frames != nil && len(st.Frames) != *want.Frames {
		return fmt.Errorf("frames = %d, want %d", len(st.Frames), *want.Frames)
	}
	return nil
}

func describe(s Step) string {
	out := s.Op
	if s.Frame != "" {
		out += " [" + s.Frame + "]"
	}
	switch {
	case s.URL != "":
		out += " " + s.URL
	case s.Name != "":
		out += " " + s.Name
	case s.N != 0:
		out += fmt.Sprintf(" %+d", s.N)
	}
	return out
}

func printHistory(w io.Writer, st tab.State) {
	for i, e := range st.Entries {
		marker := " "
		if i == st.LastCommittedIndex {
			marker = "*"
		}
		fmt.Fprintf(w, "   %s %d %s [%s]", marker, i, e.URL, e.Transition)
		if e.Title != "" {
			fmt.Fprintf(w, " %q", e.Title)
		}
		fmt.Fprintln(w)
	}
	if len(st.Frames) > 1 {
		for _, f := range st.Frames[1:] {
			name := f.Name
			if name == "" {
				name = fmt.Sprintf("#%d", f.ID)
			}
			fmt.Fprintf(w, "     frame %s %s\n", name, f.URL)
		}
	}
}
