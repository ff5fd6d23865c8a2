package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"podstudio/internal/domain"
	"podstudio/internal/imageref"
	"podstudio/internal/infra"
	"podstudio/internal/storage"
)

// Artifact is an uploaded image.
type Artifact struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

type ArtifactOptions struct {
	// ProbeClient issues the accessibility probes; it should have a short timeout.
	ProbeClient *http.Client
	Logger      *infra.Logger
}

// ArtifactStore uploads images to object storage under collision-free keys
// and checks that third parties can fetch them.
type ArtifactStore struct {
	objects     storage.ObjectStore
	resolver    ImageResolver
	probeClient *http.Client
	logger      *infra.Logger
	now         func() time.Time
	newID       func() string
}

func NewArtifactStore(objects storage.ObjectStore, resolver ImageResolver, opts ArtifactOptions) *ArtifactStore {
	client := opts.ProbeClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ArtifactStore{
		objects:     objects,
		resolver:    resolver,
		probeClient: client,
		logger:      infra.LoggerOrDiscard(opts.Logger),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Upload writes the image under <namespace>/<yyyy/mm/dd>/<uuid>.<ext> and
// returns its public URL. Repeated uploads never overwrite each other.
func (a *ArtifactStore) Upload(ctx context.Context, ref domain.ImageRef, namespace string) (Artifact, error) {
	resolved, err := a.resolver.Resolve(ctx, ref)
	if err != nil {
		return Artifact{}, err
	}
	key := a.objectKey(namespace, resolved.MIME)
	stored, err := a.objects.Put(ctx, key, resolved.Data, resolved.MIME)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: upload %s: %w", domain.ErrTransientIO, key, err)
	}
	art := Artifact{
		Key:  stored,
		URL:  a.objects.URL(stored),
		MIME: resolved.MIME,
		Size: int64(len(resolved.Data)),
	}
	a.logger.Debug().Str("key", art.Key).Int64("bytes", art.Size).Msg("artifacts: uploaded")
	return art, nil
}

// Probe checks that url answers a HEAD request with 2xx. Servers that refuse
// HEAD are asked for the first byte instead.
func (a *ArtifactStore) Probe(ctx context.Context, url string) error {
	status, err := a.probe(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = a.probe(ctx, http.MethodGet, url)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrArtifactNotAccessible, url, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: %s: status %d", domain.ErrArtifactNotAccessible, url, status)
	}
	return nil
}

// UploadForRender uploads and then probes, so a URL is never handed to the
// rendering provider before it is reachable.
func (a *ArtifactStore) UploadForRender(ctx context.Context, ref domain.ImageRef, namespace string) (Artifact, error) {
	art, err := a.Upload(ctx, ref, namespace)
	if err != nil {
		return Artifact{}, err
	}
	if err := a.Probe(ctx, art.URL); err != nil {
		return art, err
	}
	return art, nil
}

// Delete removes a previously uploaded object.
func (a *ArtifactStore) Delete(ctx context.Context, key string) error {
	return a.objects.Delete(ctx, key)
}

func (a *ArtifactStore) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := a.probeClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (a *ArtifactStore) objectKey(namespace, mimeType string) string {
	ns := strings.Trim(strings.TrimSpace(namespace), "/")
	if ns == "" {
		ns = "artifacts"
	}
	return path.Join(ns, a.now().UTC().Format("2006/01/02"), a.newID()+imageref.ExtensionFor(mimeType))
}
