package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/waabox/deploydeck/internal/domain"
)

// githubRemote matches both https://github.com/owner/repo and git@github.com:owner/repo.
var githubRemote = regexp.MustCompile(`(?i)github\.com[/:]([^/\s]+)/([^/\s]+)`)

// DetectRepository reads the .git/config in the given directory and returns
// a Repository built from the origin remote URL. Owner and Name are empty when
// origin is not hosted on GitHub.
func DetectRepository(dir string) (domain.Repository, error) {
	configPath := filepath.Join(dir, ".git", "config")
	f, err := os.Open(configPath)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("could not open .git/config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `[remote "origin"]` {
			inOrigin = true
			continue
		}
		if inOrigin && strings.HasPrefix(line, "[") {
			break
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return ParseRemoteURL(strings.TrimSpace(parts[1])), nil
			}
		}
	}
	return domain.Repository{}, errors.New("no origin remote found in .git/config")
}

// ParseRemoteURL extracts owner and repository name from a GitHub URL.
// Supports HTTPS (https://github.com/owner/repo.git) and SSH (git@github.com:owner/repo.git).
// For any other input Owner and Name are left empty.
// The RemoteURL field in the returned Repository preserves the original input URL unchanged.
func ParseRemoteURL(rawURL string) domain.Repository {
	repo := domain.Repository{RemoteURL: rawURL}
	match := githubRemote.FindStringSubmatch(strings.TrimSpace(rawURL))
	if match == nil {
		return repo
	}
	name := strings.TrimSuffix(match[2], ".git")
	if name == "" {
		return repo
	}
	repo.Owner = match[1]
	repo.Name = name
	return repo
}
