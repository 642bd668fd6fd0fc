package action

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	c "github.com/patrickmn/go-cache"

	"github.com/kriyahq/kriya/logger"
	"go.uber.org/zap"
)

// requirementScanLimit bounds how far into a script the requirements header
// is looked for.
const requirementScanLimit = 30

// Installer resolves a script's declared dependencies and installs them
// once per project. Concurrent installs for the same requirement set are
// deduplicated; completed installs are cached so repeat executions skip the
// install entirely.
type Installer struct {
	installCommand []string
	installed      *c.Cache
	mu             sync.Mutex
	pending        map[string]chan struct{}
}

func NewInstaller(installCommand []string) *Installer {
	return &Installer{
		installCommand: installCommand,
		installed:      c.New(c.NoExpiration, 10*time.Minute),
		pending:        make(map[string]chan struct{}),
	}
}

// Ensure parses the script's "# requires:" header and installs the named
// packages unless a matching install already ran for this project.
func (i *Installer) Ensure(project string, scriptPath string) error {
	reqs, err := parseRequirements(scriptPath)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return nil
	}
	key := project + ":" + strings.Join(reqs, " ")
	if _, ok := i.installed.Get(key); ok {
		return nil
	}

	i.mu.Lock()
	if ch, ok := i.pending[key]; ok {
		i.mu.Unlock()
		<-ch
		if _, ok := i.installed.Get(key); ok {
			return nil
		}
		// the concurrent install failed; try again ourselves
		return i.Ensure(project, scriptPath)
	}
	ch := make(chan struct{})
	i.pending[key] = ch
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		delete(i.pending, key)
		i.mu.Unlock()
		close(ch)
	}()

	if len(i.installCommand) == 0 {
		return fmt.Errorf("script declares requirements %v but no install command is configured", reqs)
	}
	args := append(append([]string{}, i.installCommand[1:]...), reqs...)
	cmd := exec.Command(i.installCommand[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("installing %v: %w: %s", reqs, err, strings.TrimSpace(string(out)))
	}
	logger.Info("installed script requirements", zap.String("project", project), zap.Strings("requirements", reqs))
	i.installed.Add(key, true, c.NoExpiration)
	return nil
}

// parseRequirements scans the head of the script for a "# requires: a b c"
// line.
func parseRequirements(scriptPath string) ([]string, error) {
	f, err := os.Open(scriptPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for line := 0; scanner.Scan() && line < requirementScanLimit; line++ {
		text := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(text, "# requires:"); ok {
			return strings.Fields(rest), nil
		}
	}
	return nil, scanner.Err()
}
