package remote

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-github/v84/github"
)

// perPageLimit is the per-page limit for GitHub API requests. One page
// is plenty: the channels select from the newest releases.
const perPageLimit = 30

var (
	// ErrRateLimitExceeded is returned when the GitHub API rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("github API rate limit exceeded")

	// ErrRepositoryNotFound is returned when the repository is not found.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrNoReleases is returned when no releases are found.
	ErrNoReleases = errors.New("no releases found")
)

// Release is one entry of a release feed.
type Release struct {
	TagName    string
	Prerelease bool
	CreatedAt  time.Time
	Assets     []ReleaseAsset
}

// ReleaseAsset is one downloadable artifact of a release.
type ReleaseAsset struct {
	Name        string
	DownloadURL string
}

// ReleasesClient lists the releases of a repository, newest first.
type ReleasesClient interface {
	ListReleases(ctx context.Context, owner, repo string) ([]*Release, error)
}

// SDKReleasesClient implements ReleasesClient using the go-github SDK.
type SDKReleasesClient struct {
	client *github.Client
}

// NewReleasesClient creates a ReleasesClient. An API token is picked up
// from GH_TOKEN or GITHUB_TOKEN when present; anonymous access works
// within the unauthenticated rate limit.
func NewReleasesClient() *SDKReleasesClient {
	var httpClient *http.Client

	if token := getToken(); token != "" {
		httpClient = &http.Client{
			Transport: &authTransport{token: token},
		}
	}

	return &SDKReleasesClient{client: github.NewClient(httpClient)}
}

// getToken retrieves a GitHub token from the environment.
func getToken() string {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}

	return os.Getenv("GITHUB_TOKEN")
}

// authTransport adds the authentication header to requests.
type authTransport struct {
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)

	return http.DefaultTransport.RoundTrip(req)
}

// ListReleases lists the newest releases of a repository.
func (c *SDKReleasesClient) ListReleases(
	ctx context.Context,
	owner, repo string,
) ([]*Release, error) {
	opts := &github.ListOptions{PerPage: perPageLimit}

	ghReleases, resp, err := c.client.Repositories.ListReleases(ctx, owner, repo, opts)
	if err != nil {
		return nil, handleError(resp, err)
	}

	if len(ghReleases) == 0 {
		return nil, ErrNoReleases
	}

	releases := make([]*Release, 0, len(ghReleases))

	for _, rel := range ghReleases {
		assets := make([]ReleaseAsset, 0, len(rel.Assets))
		for _, a := range rel.Assets {
			assets = append(assets, ReleaseAsset{
				Name:        a.GetName(),
				DownloadURL: a.GetBrowserDownloadURL(),
			})
		}

		releases = append(releases, &Release{
			TagName:    rel.GetTagName(),
			Prerelease: rel.GetPrerelease(),
			CreatedAt:  rel.GetCreatedAt().Time,
			Assets:     assets,
		})
	}

	return releases, nil
}

// LatestRelease fetches the newest non-prerelease release of a
// repository.
func (c *SDKReleasesClient) LatestRelease(
	ctx context.Context,
	owner, repo string,
) (*Release, error) {
	rel, resp, err := c.client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, handleError(resp, err)
	}

	assets := make([]ReleaseAsset, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		assets = append(assets, ReleaseAsset{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}

	return &Release{
		TagName:    rel.GetTagName(),
		Prerelease: rel.GetPrerelease(),
		CreatedAt:  rel.GetCreatedAt().Time,
		Assets:     assets,
	}, nil
}

// handleError converts GitHub API errors to our error types.
func handleError(resp *github.Response, err error) error {
	if resp == nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrRepositoryNotFound
	case http.StatusForbidden:
		if resp.Rate.Remaining == 0 {
			return ErrRateLimitExceeded
		}

		return err
	default:
		return err
	}
}
