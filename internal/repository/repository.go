// Package repository collects the git metadata attached to reports
// sent to a collection endpoint.
package repository

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Head describes the checked-out commit.
type Head struct {
	ID                 string `json:"id"`
	AuthorName         string `json:"author_name"`
	AuthorEmail        string `json:"author_email"`
	AuthorTimestamp    string `json:"author_timestamp"`
	CommitterName      string `json:"committer_name"`
	CommitterEmail     string `json:"committer_email"`
	CommitterTimestamp string `json:"committer_timestamp"`
	Message            string `json:"message"`
}

// Remote is one fetch remote.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Info is the git data of one working tree.
type Info struct {
	Head    Head     `json:"head"`
	Branch  string   `json:"branch"`
	Remotes []Remote `json:"remotes"`
}

// Runner runs git with args in dir and returns its standard output.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// headFormat prints one field per line; the subject comes last so it
// may safely contain anything.
const headFormat = "%H%n%aN%n%ae%n%at%n%cN%n%ce%n%ct%n%s"

// branchEnv lists CI variables naming the branch under test, in order.
var branchEnv = []string{"CIRCLE_BRANCH", "TRAVIS_BRANCH", "GITHUB_HEAD_REF", "GITHUB_REF_NAME"}

// Inspector gathers Info. The zero value runs the git binary and
// consults no environment.
type Inspector struct {
	Run Runner
	Env map[string]string
}

// Inspect gathers the git metadata of the working tree at root.
func (in Inspector) Inspect(ctx context.Context, root string) (*Info, error) {
	run := in.Run
	if run == nil {
		run = Git
	}

	out, err := run(ctx, root, "--no-pager", "log", "-1", "--pretty=format:"+headFormat)
	if err != nil {
		return nil, fmt.Errorf("reading head commit: %w", err)
	}
	head, err := parseHead(out)
	if err != nil {
		return nil, err
	}

	branch := in.branchFromEnv()
	if branch == "" {
		out, err := run(ctx, root, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return nil, fmt.Errorf("reading branch: %w", err)
		}
		branch = strings.TrimSpace(out)
	}

	out, err = run(ctx, root, "remote", "-v")
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}

	return &Info{
		Head:    head,
		Branch:  branch,
		Remotes: parseRemotes(out),
	}, nil
}

func (in Inspector) branchFromEnv() string {
	for _, name := range branchEnv {
		if v := in.Env[name]; v != "" {
			return v
		}
	}
	return ""
}

func parseHead(out string) (Head, error) {
	parts := strings.SplitN(out, "\n", 8)
	if len(parts) < 8 {
		return Head{}, fmt.Errorf("unexpected git log output: %q", out)
	}
	return Head{
		ID:                 parts[0],
		AuthorName:         parts[1],
		AuthorEmail:        parts[2],
		AuthorTimestamp:    parts[3],
		CommitterName:      parts[4],
		CommitterEmail:     parts[5],
		CommitterTimestamp: parts[6],
		Message:            strings.TrimSpace(parts[7]),
	}, nil
}

// parseRemotes keeps the "(fetch)" lines of `git remote -v`.
func parseRemotes(out string) []Remote {
	remotes := []Remote{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasSuffix(line, "(fetch)") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		remotes = append(remotes, Remote{Name: fields[0], URL: fields[1]})
	}
	return remotes
}

// Git runs the git binary in dir.
func Git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
