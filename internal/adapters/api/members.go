package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"waccamaw/internal/config"
	"waccamaw/internal/domain/member"
)

// text decodes a JSON string, number, bool or null into a string. The
// roster backend is not consistent about field types.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	*t = text(bytes.TrimSpace(b))
	return nil
}

// RequestUpdate asks the API to email a verification link to email.
func (c *Client) RequestUpdate(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.request(ctx, "request_update", http.MethodPost, c.endpoints.RequestUpdate, body, nil)
}

// VerifyResult is the outcome of a verification token exchange.
type VerifyResult struct {
	SessionToken string
	MemberData   member.Profile
}

// VerifyToken exchanges an emailed verification token for a session token.
func (c *Client) VerifyToken(ctx context.Context, token string) (VerifyResult, error) {
	var resp struct {
		Success      *bool          `json:"success"`
		Error        string         `json:"error"`
		SessionToken string         `json:"sessionToken"`
		MemberData   member.Profile `json:"memberData"`
	}
	endpoint := config.Expand(c.endpoints.VerifyToken, "token", token)
	if err := c.request(ctx, "verify_token", http.MethodGet, endpoint, nil, &resp); err != nil {
		return VerifyResult{}, err
	}
	if resp.Success != nil && !*resp.Success {
		return VerifyResult{}, &Error{Status: http.StatusOK, Message: orDefault(resp.Error, "verification failed")}
	}
	if resp.SessionToken == "" {
		return VerifyResult{}, &Error{Status: http.StatusOK, Message: "verification response did not include a session token"}
	}
	return VerifyResult{SessionToken: resp.SessionToken, MemberData: resp.MemberData}, nil
}

// UpdateRequest is the body of an update-member call.
type UpdateRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

// UpdateMember submits profile changes for the signed-in member.
func (c *Client) UpdateMember(ctx context.Context, req UpdateRequest) error {
	return c.request(ctx, "update_member", http.MethodPut, c.endpoints.UpdateMember, req, nil)
}

type wireStatus struct {
	Active                bool `json:"active"`
	StatusText            text `json:"statusText"`
	MemberSince           text `json:"memberSince"`
	LastActive            text `json:"lastActive"`
	Position              text `json:"position"`
	Voter                 text `json:"voter"`
	Expires               text `json:"expires"`
	TribalID              text `json:"tribalId"`
	MemberID              text `json:"memberId"`
	IsExecutiveLeadership bool `json:"isExecutiveLeadership"`
	WarningThresholdDays  text `json:"warningThresholdDays"`
}

// GetMemberStatus returns the signed-in member's status.
// POST: an unauthenticated response matches ErrUnauthenticated
func (c *Client) GetMemberStatus(ctx context.Context) (member.Status, error) {
	var resp struct {
		Success       bool           `json:"success"`
		Authenticated *bool          `json:"authenticated"`
		Error         string         `json:"error"`
		Status        *wireStatus    `json:"status"`
		RawFields     map[string]any `json:"rawFields"`
	}
	if err := c.request(ctx, "member_status", http.MethodGet, c.endpoints.MemberStatus, nil, &resp); err != nil {
		return member.Status{}, err
	}
	if resp.Authenticated != nil && !*resp.Authenticated {
		return member.Status{}, &Error{Status: http.StatusUnauthorized, Message: orDefault(resp.Error, "Not authenticated")}
	}
	if !resp.Success || resp.Status == nil {
		return member.Status{}, errors.New("invalid status response")
	}

	w := resp.Status
	threshold, _ := strconv.Atoi(string(w.WarningThresholdDays))
	return member.Status{
		Active:                w.Active,
		StatusText:            string(w.StatusText),
		MemberSince:           string(w.MemberSince),
		LastActive:            string(w.LastActive),
		Position:              string(w.Position),
		Voter:                 string(w.Voter),
		Expires:               string(w.Expires),
		TribalID:              string(w.TribalID),
		MemberID:              string(w.MemberID),
		IsExecutiveLeadership: w.IsExecutiveLeadership,
		WarningThresholdDays:  threshold,
		RawFields:             stringifyFields(resp.RawFields),
	}, nil
}

func stringifyFields(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				out[k] = fmt.Sprint(v)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

// Photo is a streamed member photo. The caller closes Body.
type Photo struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// GetMemberPhoto streams the photo stored for itemID.
func (c *Client) GetMemberPhoto(ctx context.Context, itemID string) (Photo, error) {
	endpoint := config.Expand(c.endpoints.MemberPhoto, "itemId", itemID)
	resp, err := c.send(ctx, "member_photo", http.MethodGet, endpoint, "", nil)
	if err != nil {
		return Photo{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Photo{}, checkStatus(resp.StatusCode, data)
	}
	return Photo{Body: resp.Body, ContentType: resp.Header.Get("Content-Type"), ContentLength: resp.ContentLength}, nil
}

// UploadPhoto sends a photo as the multipart field "photo".
func (c *Client) UploadPhoto(ctx context.Context, filename, contentType string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to buffer photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish photo upload body: %w", err)
	}

	resp, err := c.send(ctx, "upload_photo", http.MethodPost, c.endpoints.UploadPhoto, mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upload response: %w", err)
	}
	if err := checkStatus(resp.StatusCode, data); err != nil {
		return err
	}
	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("invalid JSON from upload_photo: %w", err)
	}
	if !result.Success {
		return &Error{Status: resp.StatusCode, Message: orDefault(result.Error, "Upload failed")}
	}
	return nil
}

// rosterFields maps the list backend's column names onto a member record.
type rosterFields struct {
	FirstName     string `mapstructure:"First_x0020_Name"`
	LastName      string `mapstructure:"Last_x0020_Name"`
	Email         string `mapstructure:"Email_x0020_Addr"`
	Status        string `mapstructure:"Status"`
	Expires       string `mapstructure:"Expires"`
	StatusUpdated string `mapstructure:"Status_x0020_Updated"`
	Modified      string `mapstructure:"Modified"`
}

// GetAdminMemberList returns the full roster. Executive leadership only.
func (c *Client) GetAdminMemberList(ctx context.Context) ([]member.Record, error) {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Members []struct {
			ID     text           `json:"id"`
			Fields map[string]any `json:"fields"`
		} `json:"members"`
	}
	if err := c.request(ctx, "admin_member_list", http.MethodGet, c.endpoints.AdminMemberList, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &Error{Status: http.StatusOK, Message: orDefault(resp.Error, "Failed to load member list")}
	}

	out := make([]member.Record, 0, len(resp.Members))
	for _, m := range resp.Members {
		var f rosterFields
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &f,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build roster decoder: %w", err)
		}
		if err := dec.Decode(m.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode roster entry %s: %w", m.ID, err)
		}
		out = append(out, member.Record{
			ID:            string(m.ID),
			FirstName:     f.FirstName,
			LastName:      f.LastName,
			Email:         f.Email,
			Status:        f.Status,
			Expires:       f.Expires,
			StatusUpdated: f.StatusUpdated,
			Modified:      f.Modified,
		})
	}
	return out, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
