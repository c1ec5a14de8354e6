package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type tokenEndpointPayload struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// exchangeCode trades the authorization code for provider OAuth tokens.
// Rejections here mean an invalid, expired, or reused code, or a redirect-uri
// mismatch.
func (p *Pipeline) exchangeCode(ctx context.Context, state *exchangeState) error {
	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	if p.cfg.ClientSecret != "" {
		form.Set("client_secret", p.cfg.ClientSecret)
	}
	form.Set("code", state.code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", p.cfg.RedirectURI)

	status, body, err := p.do(ctx, http.MethodPost, p.cfg.Endpoints.TokenURL,
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return transportError(StageCodeExchange, err)
	}

	var payload tokenEndpointPayload
	if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return transportError(StageCodeExchange, fmt.Errorf("token endpoint returned status %d", status))
		}
		return decodeError(StageCodeExchange, decodeErr)
	}
	if payload.ErrorCode != "" {
		return rejectedError(StageCodeExchange, describeTokenError(payload))
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return transportError(StageCodeExchange, fmt.Errorf("token endpoint returned status %d", status))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return decodeError(StageCodeExchange, fmt.Errorf("token endpoint response missing access token"))
	}

	state.providerTokens = providerTokens{
		accessToken:  strings.TrimSpace(payload.AccessToken),
		refreshToken: strings.TrimSpace(payload.RefreshToken),
		expiresIn:    payload.ExpiresIn,
	}
	return nil
}

type federatedAuthRequest struct {
	Properties   map[string]any `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

type federatedAuthResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
	XErr int64 `json:"XErr"`
}

// fetchUserToken signs the provider access token into the federated identity
// network. Fails when the upstream account has no linked identity there.
func (p *Pipeline) fetchUserToken(ctx context.Context, state *exchangeState) error {
	request := federatedAuthRequest{
		Properties: map[string]any{
			"AuthMethod": "RPS",
			"SiteName":   defaultFederationSite,
			"RpsTicket":  "d=" + state.providerTokens.accessToken,
		},
		RelyingParty: defaultUserRelyingParty,
		TokenType:    "JWT",
	}
	response, err := p.postFederatedAuth(ctx, StageUserToken, p.cfg.Endpoints.UserURL, request,
		"account has no linked federation identity")
	if err != nil {
		return err
	}
	state.userToken = response
	return nil
}

// fetchSTSToken exchanges the federated user token for a scoped
// security-token-service token. Fails on insufficient entitlement or outage.
func (p *Pipeline) fetchSTSToken(ctx context.Context, state *exchangeState) error {
	request := federatedAuthRequest{
		Properties: map[string]any{
			"SandboxId":  defaultSTSSandbox,
			"UserTokens": []string{state.userToken.token},
		},
		RelyingParty: defaultSTSRelyingParty,
		TokenType:    "JWT",
	}
	response, err := p.postFederatedAuth(ctx, StageSTSToken, p.cfg.Endpoints.STSURL, request,
		"account is not entitled on the security token service")
	if err != nil {
		return err
	}
	if response.userHash == "" {
		response.userHash = state.userToken.userHash
	}
	state.stsToken = response
	return nil
}

func (p *Pipeline) postFederatedAuth(
	ctx context.Context,
	stage, endpoint string,
	request federatedAuthRequest,
	unauthorizedMessage string,
) (federatedToken, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return federatedToken{}, decodeError(stage, err)
	}
	status, body, err := p.do(ctx, http.MethodPost, endpoint,
		map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		bytes.NewReader(encoded),
	)
	if err != nil {
		return federatedToken{}, transportError(stage, err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		var payload federatedAuthResponse
		message := unauthorizedMessage
		if json.Unmarshal(body, &payload) == nil && payload.XErr != 0 {
			message = fmt.Sprintf("%s (provider reason %d)", unauthorizedMessage, payload.XErr)
		}
		return federatedToken{}, rejectedError(stage, message)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return federatedToken{}, transportError(stage, fmt.Errorf("endpoint returned status %d", status))
	}

	var payload federatedAuthResponse
	if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
		return federatedToken{}, decodeError(stage, decodeErr)
	}
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		return federatedToken{}, decodeError(stage, fmt.Errorf("response missing token"))
	}
	userHash := ""
	if len(payload.DisplayClaims.XUI) > 0 {
		userHash = strings.TrimSpace(payload.DisplayClaims.XUI[0].UHS)
	}
	return federatedToken{token: token, userHash: userHash}, nil
}

type sessionTokenRequest struct {
	XToken   string `json:"xtoken"`
	Platform string `json:"platform"`
}

type sessionTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// fetchSessionToken trades the security token for the target service's own
// access token.
func (p *Pipeline) fetchSessionToken(ctx context.Context, state *exchangeState) error {
	request := sessionTokenRequest{
		XToken:   fmt.Sprintf("XBL3.0 x=%s;%s", state.stsToken.userHash, state.stsToken.token),
		Platform: defaultSessionPlatform,
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return decodeError(StageSessionToken, err)
	}
	status, body, err := p.do(ctx, http.MethodPost, p.cfg.Endpoints.SessionURL,
		map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		bytes.NewReader(encoded),
	)
	if err != nil {
		return transportError(StageSessionToken, err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return rejectedError(StageSessionToken, "security token was not accepted by the service")
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return transportError(StageSessionToken, fmt.Errorf("endpoint returned status %d", status))
	}

	var payload sessionTokenResponse
	if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
		return decodeError(StageSessionToken, decodeErr)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return rejectedError(StageSessionToken, "response did not contain a valid bearer token")
	}
	state.sessionToken = sessionToken{
		accessToken: strings.TrimSpace(payload.AccessToken),
		expiresIn:   payload.ExpiresIn,
	}
	return nil
}

type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// fetchProfile resolves the account profile. A 404 is the common expected
// failure: the account does not own the required entitlement.
func (p *Pipeline) fetchProfile(ctx context.Context, state *exchangeState) error {
	status, body, err := p.do(ctx, http.MethodGet, p.cfg.Endpoints.ProfileURL,
		map[string]string{
			"Authorization": "Bearer " + state.sessionToken.accessToken,
			"Accept":        "application/json",
		},
		nil,
	)
	if err != nil {
		return transportError(StageProfile, err)
	}
	if status == http.StatusNotFound || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return rejectedError(StageProfile, "account does not own the required entitlement")
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return transportError(StageProfile, fmt.Errorf("endpoint returned status %d", status))
	}

	var payload profileResponse
	if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
		return decodeError(StageProfile, decodeErr)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return decodeError(StageProfile, fmt.Errorf("response missing profile id"))
	}
	state.profile.ID = strings.TrimSpace(payload.ID)
	state.profile.Name = strings.TrimSpace(payload.Name)
	return nil
}

// do issues one bounded external request: per-stage timeout, capped response
// body. Exceeding the timeout surfaces as a stage failure, never a hang.
func (p *Pipeline) do(
	ctx context.Context,
	method, endpoint string,
	headers map[string]string,
	body io.Reader,
) (int, []byte, error) {
	if p.cfg.HTTPClient == nil {
		return 0, nil, fmt.Errorf("federation: http client is not configured")
	}

	requestCtx := ctx
	cancel := func() {}
	if p.cfg.StageTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
	}
	defer cancel()

	request, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := p.cfg.HTTPClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	payload, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return response.StatusCode, nil, readErr
	}
	if int64(len(payload)) > maxResponseBodyBytes {
		return response.StatusCode, nil, fmt.Errorf("response exceeds %d bytes", maxResponseBodyBytes)
	}
	return response.StatusCode, payload, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "token exchange was rejected"
}
