// Command seekgits is the thin dispatcher for the lifecycle and filter
// operations (spec.md §6). The dispatcher itself — flag handling, help
// and version text — is out of the specification's core scope (spec.md
// §1); it exists only to wire stdio and arguments onto the internal
// packages, the same minimal role cmd/age/age.go plays for the age
// library.
package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/wengineering-works/seekgits/internal/filter"
	"github.com/wengineering-works/seekgits/internal/gpgwrap"
	"github.com/wengineering-works/seekgits/internal/lifecycle"
	"github.com/wengineering-works/seekgits/internal/logger"
	"github.com/wengineering-works/seekgits/internal/mlockall"
	"github.com/wengineering-works/seekgits/internal/vcsproc"
)

const usage = `Usage:
    seekgits init
    seekgits encrypt <path>
    seekgits share <path> <recipient>
    seekgits remove <path>
    seekgits status [path]
    seekgits filter encrypt <path> [tmpfile]
    seekgits filter decrypt <path> [tmpfile]
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	log := logger.New(stderr)

	// Best-effort: every subcommand below may hold a raw FileKey (start
	// tracking, share, filter encrypt/decrypt all touch one), so lock the
	// process's pages before any of them run. Failure is a warning, not
	// fatal — see internal/mlockall's doc comment.
	if err := mlockall.Lock(); err != nil {
		log.Printf("warning: %v", err)
	}

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	switch args[0] {
	case "init":
		return runInit(log)
	case "encrypt":
		return runEncrypt(log, args[1:])
	case "share":
		return runShare(log, args[1:])
	case "remove":
		return runRemove(log, args[1:])
	case "status":
		return runStatus(stdout, log, args[1:])
	case "filter":
		return runFilter(stdin, stdout, stderr, log, args[1:])
	default:
		fmt.Fprint(stderr, usage)
		return 1
	}
}

func newController(log *logger.Logger) (*lifecycle.Controller, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("seekgits: getting working directory: %w", err)
	}
	git, err := vcsproc.NewGit()
	if err != nil {
		return nil, err
	}
	root, err := git.RepositoryRoot(cwd)
	if err != nil {
		root = cwd
	}
	provider, err := gpgwrap.NewGPGProvider()
	if err != nil {
		return nil, err
	}
	return lifecycle.NewController(root, provider, git), nil
}

func runInit(log *logger.Logger) int {
	c, err := newController(log)
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	if err := c.Init(); err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	return 0
}

func runEncrypt(log *logger.Logger, args []string) int {
	if len(args) < 1 {
		log.Printf("error: usage: seekgits encrypt <path>")
		return 1
	}
	c, err := newController(log)
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	if err := c.StartTracking(args[0], ""); err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	return 0
}

func runShare(log *logger.Logger, args []string) int {
	if len(args) < 2 {
		log.Printf("error: usage: seekgits share <path> <recipient>")
		return 1
	}
	c, err := newController(log)
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	if err := c.AddRecipient(args[0], args[1]); err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	return 0
}

func runRemove(log *logger.Logger, args []string) int {
	if len(args) < 1 {
		log.Printf("error: usage: seekgits remove <path>")
		return 1
	}
	c, err := newController(log)
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	if err := c.StopTracking(args[0]); err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	return 0
}

func runStatus(stdout *os.File, log *logger.Logger, args []string) int {
	c, err := newController(log)
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	reports, err := c.Status(path)
	if err != nil {
		log.Printf("error: %v", err)
		return 1
	}
	for _, r := range reports {
		fmt.Fprintf(stdout, "%s\trecipients=%v\tworking-copy=%v\tunlockable=%v\n",
			r.Path, r.Recipients, r.FileExists, r.CanUnwrapKey)
	}
	return 0
}

// runFilter always returns 0: spec.md §6 states filter pass-through exits
// 0 unconditionally, and the filter engine itself already downgrades
// every recoverable failure to a warning plus pass-through content.
func runFilter(stdin, stdout, stderr *os.File, log *logger.Logger, args []string) int {
	if len(args) < 2 {
		fmt.Fprint(stderr, usage)
		return 0
	}
	mode, path := args[0], args[1]
	var tmpfile string
	if len(args) > 2 {
		tmpfile = args[2]
	}

	c, err := newController(log)
	if err != nil {
		log.Printf("warning: %v", err)
		if _, copyErr := io.Copy(stdout, stdin); copyErr != nil {
			log.Printf("warning: passthrough copy: %v", copyErr)
		}
		return 0
	}
	engine := filter.NewEngine(c.Store, log)

	switch mode {
	case "encrypt":
		var in io.Reader = stdin
		if tmpfile != "" {
			f, err := os.Open(tmpfile)
			if err != nil {
				log.Printf("warning: opening %s: %v", tmpfile, err)
				return 0
			}
			defer f.Close()
			in = f
		}
		if term.IsTerminal(int(stdout.Fd())) {
			// A clean filter's stdout is always redirected by the host VCS
			// into the object store; a terminal here means the binary is
			// being run by hand (spec.md §6 "filter encrypt" is not an
			// interactive subcommand). Warn instead of spewing the cipher
			// frame at the shell.
			log.Printf("warning: refusing to write binary ciphertext to a terminal")
			return 0
		}
		if err := engine.Clean(stdout, in, path); err != nil {
			log.Printf("warning: clean %s: %v", path, err)
		}
	case "decrypt":
		if tmpfile != "" {
			if err := engine.Textconv(stdout, tmpfile, path); err != nil {
				log.Printf("warning: textconv %s: %v", path, err)
			}
			return 0
		}
		if err := engine.Smudge(stdout, stdin, path); err != nil {
			log.Printf("warning: smudge %s: %v", path, err)
		}
	default:
		fmt.Fprint(stderr, usage)
	}
	return 0
}
