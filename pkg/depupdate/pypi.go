package depupdate

import (
	"context"
	"net/url"
	"strings"

	"github.com/agentstation/fleetsync/internal/transport"
	"github.com/agentstation/fleetsync/pkg/constants"
)

// PackageIndex looks up the latest released version of a package.
type PackageIndex interface {
	LatestVersion(ctx context.Context, pkg string) (string, error)
}

// PyPI queries the PyPI JSON API.
type PyPI struct {
	// BaseURL defaults to constants.PyPIBaseURL.
	BaseURL string
	Client  *transport.Client
}

// NewPyPI returns a client for the public index.
func NewPyPI() *PyPI {
	return &PyPI{BaseURL: constants.PyPIBaseURL, Client: transport.New()}
}

type pypiProject struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// LatestVersion implements PackageIndex.
func (p *PyPI) LatestVersion(ctx context.Context, pkg string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.PackageIndexTimeout)
	defer cancel()

	base := p.BaseURL
	if base == "" {
		base = constants.PyPIBaseURL
	}
	client := p.Client
	if client == nil {
		client = transport.New()
	}

	var v pypiProject
	if err := client.GetJSON(ctx, strings.TrimRight(base, "/")+"/"+url.PathEscape(pkg)+"/json", &v); err != nil {
		return "", err
	}
	return v.Info.Version, nil
}
