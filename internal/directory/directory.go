// Package directory implements the Directory Client (spec.md §4.5, §6.1):
// a bucket-sharded HTTPS fetch of the community server list.
//
// Grounded on pkg/atlas/server.go's shared *http.Client with gzip transport
// (it imports github.com/klauspost/compress/gzip for outgoing HAR capture;
// here the same package decodes the directory's gzip-compressed responses)
// and on pkg/eax/eax.go's pattern of a small JSON HTTP client with a fixed
// header set.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vstojkovic/bugle/internal/model"
)

// Base URLs selected by branch (spec.md §6.1).
const (
	baseURLMain       = "https://ce-fcsd-winoff-ams.funcom.com"
	baseURLPublicBeta = "https://ce-fcsd-winoff-wdc.funcom.com"

	apiKey    = "aWAWir4PV5uEPTLwsCcQBKA2bIFOz27v"
	userAgent = "ConanSandbox/++Funcom+Conan_Sandbox-CL UE4MKPL-1.31.200121"
)

// Client fetches the server list over HTTPS (spec.md §4.5).
type Client struct {
	log        zerolog.Logger
	httpClient *http.Client
	baseOverride string
}

// overrideBaseURLForTest points the client at a local test server instead of
// the real directory hosts.
func (c *Client) overrideBaseURLForTest(url string) {
	c.baseOverride = url
}

// New builds a Client sharing one gzip-enabled *http.Client across requests
// (spec.md §4.5 "a single HTTP client is shared, gzip-enabled").
func New(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("component", "directory").Logger(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func baseURL(branch model.Branch) string {
	if branch == model.BranchPublicBeta {
		return baseURLPublicBeta
	}
	return baseURLMain
}

type indexDoc struct {
	Buckets []string `json:"buckets"`
}

type bucketDoc struct {
	Sessions []json.RawMessage `json:"sessions"`
}

// serverData is the wire shape of one directory record (spec.md §6.1
// "partial"; only the fields BUGLE's model cares about are decoded).
type serverData struct {
	ID           string `json:"EXTERNAL_SERVER_UID"`
	Name         string `json:"Name"`
	MapName      string `json:"MapName"`
	Private      bool   `json:"private"`
	Official     bool   `json:"CSF"`
	Region       int    `json:"Sy"`
	MaxPlayers   int    `json:"maxplayers"`
	ReportedIP   string `json:"ip"`
	ObservedIP   string `json:"kdsObservedServerAddress"`
	Port         uint16 `json:"Port"`
	BuildID      int    `json:"buildId"`
	ModsBlob     string `json:"S17"`
	BattlEye     bool   `json:"S3"`
	PVP          bool   `json:"S10"`
	ModeModifier int    `json:"S11"`
}

// Fetch retrieves the full server list for the given branch (spec.md §4.5
// steps 1-3): the bucket index, then each bucket concurrently, deserializing
// each session with per-record error tolerance.
func (c *Client) Fetch(ctx context.Context, branch model.Branch) ([]*model.Server, error) {
	base := baseURL(branch)
	if c.baseOverride != "" {
		base = c.baseOverride
	}

	var idx indexDoc
	if err := c.getJSON(ctx, base+"/buckets/index_Windows.json", &idx); err != nil {
		return nil, fmt.Errorf("directory: fetch bucket index: %w", err)
	}

	buckets := make([][]*model.Server, len(idx.Buckets))

	g, ctx := errgroup.WithContext(ctx)
	for i, bucket := range idx.Buckets {
		i, bucket := i, bucket
		g.Go(func() error {
			servers, err := c.fetchBucket(ctx, base, bucket)
			if err != nil {
				return fmt.Errorf("directory: fetch bucket %s: %w", bucket, err)
			}
			buckets[i] = servers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*model.Server
	for _, servers := range buckets {
		out = append(out, servers...)
	}
	return out, nil
}

func (c *Client) fetchBucket(ctx context.Context, base, bucket string) ([]*model.Server, error) {
	var doc bucketDoc
	if err := c.getJSON(ctx, base+"/buckets/"+bucket, &doc); err != nil {
		return nil, err
	}

	servers := make([]*model.Server, 0, len(doc.Sessions))
	for _, raw := range doc.Sessions {
		var sd serverData
		if err := json.Unmarshal(raw, &sd); err != nil {
			c.log.Warn().Err(err).Str("bucket", bucket).Msg("skipping malformed session record")
			continue
		}
		srv, err := sd.toServer()
		if err != nil {
			c.log.Warn().Err(err).Str("bucket", bucket).Str("id", sd.ID).Msg("skipping invalid session record")
			continue
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

func (sd *serverData) toServer() (*model.Server, error) {
	srv := &model.Server{
		ID:               sd.ID,
		Name:             sd.Name,
		Map:              sd.MapName,
		PasswordProtected: sd.Private,
		Official:         sd.Official,
		Region:           model.RegionFromDirectoryCode(sd.Region),
		MaxPlayers:       sd.MaxPlayers,
		BuildID:          sd.BuildID,
		BattlEyeRequired: sd.BattlEye,
		Port:             sd.Port,
		Modded:           sd.ModsBlob != "",
		Mode:             model.DeriveCombatMode(sd.PVP, sd.ModeModifier),
	}

	addr, invalid := normalizeAddr(sd.ReportedIP, sd.ObservedIP)
	srv.IP = addr
	if invalid {
		srv.Validity |= model.InvalidAddr
	}
	if !addr.IsValid() {
		srv.Validity |= model.InvalidAddr
	}
	if srv.Port == 0 {
		srv.Validity |= model.InvalidPort
	}
	return srv, nil
}

// normalizeAddr applies spec.md §4.5's address normalization: if the
// reported IP is private/loopback/link-local/broadcast/unspecified and an
// observed IP is present, the observed one is used.
func normalizeAddr(reported, observed string) (addr netip.Addr, invalid bool) {
	rAddr, rErr := netip.ParseAddr(reported)
	if rErr == nil && isRoutable(rAddr) {
		return rAddr, false
	}

	if observed != "" {
		if oAddr, err := netip.ParseAddr(observed); err == nil {
			return oAddr, !isRoutable(oAddr)
		}
	}

	if rErr == nil {
		return rAddr, true
	}
	return netip.Addr{}, true
}

func isRoutable(a netip.Addr) bool {
	return !(a.IsPrivate() || a.IsLoopback() || a.IsLinkLocalUnicast() || a.IsUnspecified() || isBroadcast(a))
}

func isBroadcast(a netip.Addr) bool {
	return a == netip.MustParseAddr("255.255.255.255")
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-API-Key", apiKey)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
