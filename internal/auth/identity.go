// Package auth implements the Auth Manager (spec.md §4.11): the identity-
// service (PlayFab/FLS) client and the platform-readiness-driven state
// machine that derives online/singleplayer capability.
//
// Grounded on pkg/stryder/stryder.go (a single typed HTTP call against a
// login-style endpoint, with sentinel errors for the handful of failure
// shapes that matter to the caller) for the identity client, and on
// pkg/origin/authmgr.go (a struct tracking a cached result plus an
// in-flight flag, reacting to external readiness events) for the state
// machine.
package auth

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vstojkovic/bugle/internal/model"
)

// ErrIdentityService wraps any non-200 or malformed response from the
// identity service.
var ErrIdentityService = errors.New("auth: identity service error")

const (
	titleID = "A5B4F"
	sdkID   = "UE4MKPL-1.31.200121"
)

// IdentityClient is the PlayFab/FLS login client (spec.md §4.11, §6.3).
type IdentityClient struct {
	httpClient *http.Client
}

// NewIdentityClient builds an IdentityClient sharing one *http.Client.
func NewIdentityClient() *IdentityClient {
	return &IdentityClient{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

type loginRequest struct {
	TitleID               string               `json:"TitleId"`
	CreateAccount         bool                 `json:"CreateAccount"`
	SteamTicket           string               `json:"SteamTicket"`
	InfoRequestParameters infoRequestParameters `json:"InfoRequestParameters"`
}

type infoRequestParameters struct {
	GetUserAccountInfo bool `json:"GetUserAccountInfo"`
}

type loginResponse struct {
	Data struct {
		InfoResultPayload struct {
			AccountInfo struct {
				PlayFabID string `json:"PlayFabId"`
				TitleInfo struct {
					TitlePlayerAccount struct {
						ID string `json:"Id"`
					} `json:"TitlePlayerAccount"`
					DisplayName string `json:"DisplayName"`
				} `json:"TitleInfo"`
				SteamInfo struct {
					SteamID string `json:"SteamId"`
				} `json:"SteamInfo"`
			} `json:"AccountInfo"`
		} `json:"InfoResultPayload"`
	} `json:"data"`
}

// LoginWithSteam exchanges a Steam auth ticket for an FLS account (spec.md
// §4.11, §6.3).
func (c *IdentityClient) LoginWithSteam(ctx context.Context, steamTicket []byte) (model.FLSAccount, error) {
	reqBody := loginRequest{
		TitleID:       titleID,
		CreateAccount: false,
		SteamTicket:   hex.EncodeToString(steamTicket),
		InfoRequestParameters: infoRequestParameters{
			GetUserAccountInfo: true,
		},
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return model.FLSAccount{}, err
	}

	url := fmt.Sprintf("https://%s.playfabapi.com/Client/LoginWithSteam?sdk=%s", titleID, sdkID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return model.FLSAccount{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-PlayFabSDK", sdkID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.FLSAccount{}, fmt.Errorf("%w: %v", ErrIdentityService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.FLSAccount{}, fmt.Errorf("%w: status %d", ErrIdentityService, resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.FLSAccount{}, fmt.Errorf("%w: decode response: %v", ErrIdentityService, err)
	}

	info := body.Data.InfoResultPayload.AccountInfo
	var steamID uint64
	fmt.Sscanf(info.SteamInfo.SteamID, "%d", &steamID)

	return model.FLSAccount{
		PlayFabID:            info.PlayFabID,
		TitlePlayerAccountID: info.TitleInfo.TitlePlayerAccount.ID,
		DisplayName:          formatDisplayName(info.TitleInfo.DisplayName),
		SteamID:              steamID,
	}, nil
}

// formatDisplayName inserts the '#' discriminator five characters from the
// end of raw, if raw is long enough to have one (spec.md §4.11 "if length >
// 5, insert a '#' five characters from the end"; seed scenario 3).
func formatDisplayName(raw string) string {
	if len(raw) <= 5 {
		return raw
	}
	cut := len(raw) - 5
	return raw[:cut] + "#" + raw[cut:]
}
