package save

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/saveerr"
)

// Proposal seeds the destination/format chooser.
type Proposal struct {
	Kind     content.Kind
	Formats  []content.Format
	Format   content.Format
	Dir      string
	Name     string
	Compress bool
	Preview  bool
}

// Choice is what the user confirmed. Name is the file stem.
type Choice struct {
	Dir      string
	Name     string
	Format   content.Format
	Compress bool
	Preview  bool
}

// Chooser asks the user where and how to save. Dismissal returns
// ErrUserCancelled.
type Chooser interface {
	Choose(ctx context.Context, p Proposal) (Choice, error)
}

// PromptChooser asks on a line-oriented terminal. An empty answer keeps
// the proposed value; "q" or end of input cancels.
type PromptChooser struct {
	In  io.Reader
	Out io.Writer
}

func (c PromptChooser) Choose(ctx context.Context, p Proposal) (Choice, error) {
	type line struct {
		s   string
		err error
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan line)
	r := bufio.NewReader(c.In)
	go func() {
		defer close(lines)
		for {
			s, err := r.ReadString('\n')
			select {
			case lines <- line{strings.TrimSpace(s), err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ask := func(prompt, def string) (string, error) {
		fmt.Fprintf(c.Out, "%s [%s]: ", prompt, def)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", saveerr.ErrUserCancelled, ctx.Err())
		case l, ok := <-lines:
			if !ok || (l.err != nil && l.s == "") || strings.EqualFold(l.s, "q") {
				return "", saveerr.ErrUserCancelled
			}
			if l.s == "" {
				return def, nil
			}
			return l.s, nil
		}
	}

	fmt.Fprintf(c.Out, "Saving %s (q to cancel)\n", p.Kind)
	choice := Choice{Format: p.Format, Compress: p.Compress, Preview: p.Preview}
	var err error

	if len(p.Formats) > 1 {
		names := make([]string, len(p.Formats))
		for i, f := range p.Formats {
			names[i] = string(f)
		}
		fmt.Fprintf(c.Out, "Formats: %s\n", strings.Join(names, ", "))
		s, err := ask("Format", string(p.Format))
		if err != nil {
			return Choice{}, err
		}
		choice.Format = content.ParseFormat(s)
		if !content.Supports(p.Kind, choice.Format) {
			return Choice{}, fmt.Errorf("%w: %q", saveerr.ErrInvalidFileFormat, s)
		}
	}
	if choice.Dir, err = ask("Folder", p.Dir); err != nil {
		return Choice{}, err
	}
	choice.Dir = expandHome(choice.Dir)
	if choice.Name, err = ask("Name", p.Name); err != nil {
		return Choice{}, err
	}
	if choice.Compress, err = askBool(ask, "Compress", p.Compress); err != nil {
		return Choice{}, err
	}
	if p.Kind != content.KindFile && p.Kind != content.KindMultipleFiles {
		if choice.Preview, err = askBool(ask, "Preview first", p.Preview); err != nil {
			return Choice{}, err
		}
	}
	return choice, nil
}

func askBool(ask func(string, string) (string, error), prompt string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	s, err := ask(prompt+" (y/n)", d)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return def, nil
}

func expandHome(dir string) string {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}
