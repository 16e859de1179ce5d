package cmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"cmskit/domain/cms"
	"cmskit/internal/errors"
	"cmskit/ports"
)

const (
	DefaultBaseURL   = "http://cms.enjoy-tv.cn"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxBodyBytes = 32 << 20
	serviceName  = "cms"
)

// Config holds gateway settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Client is the HTTP gateway to the CMS
type Client struct {
	config     Config
	httpClient *http.Client
	cookies    ports.CredentialSource
	logger     *zap.Logger
}

// NewClient creates a gateway. The cookie is read from cookies on every call.
func NewClient(config Config, cookies ports.CredentialSource, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cookies: cookies,
		logger:  logger,
	}
}

// BaseURL returns the normalized base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do sends a request and decodes the reply
func (c *Client) Do(ctx context.Context, req cms.Request) (*cms.Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("cms call",
		zap.String("path", req.Path),
		zap.Stringer("encoding", req.Encoding),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ExternalServiceError(serviceName, &cms.StatusError{
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
		})
	}

	parsed, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	parsed.StatusCode = resp.StatusCode
	if !parsed.OK() {
		return parsed, errors.ExternalServiceError(serviceName, &cms.APIError{Code: parsed.Code, Msg: parsed.Msg})
	}
	return parsed, nil
}

func (c *Client) buildRequest(ctx context.Context, req cms.Request) (*http.Request, error) {
	cookie := ""
	if c.cookies != nil {
		var err error
		if cookie, err = c.cookies.Load(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to load cms cookie")
		}
	}

	target := c.config.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.InvalidInputf("invalid cms path %q: %v", req.Path, err)
	}

	var httpReq *http.Request
	switch req.Encoding {
	case cms.EncodingQuery:
		u.RawQuery = encodeQuery(req.Params, url.QueryEscape)
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	case cms.EncodingRawQuery:
		u.RawQuery = encodeQuery(req.Params, requote)
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	case cms.EncodingJSON:
		var body []byte
		if body, err = encodeJSON(req.Params); err != nil {
			return nil, errors.InvalidInputf("cannot encode request body: %v", err)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
	default:
		return nil, errors.InvalidInputf("unsupported encoding %s", req.Encoding)
	}
	if err != nil {
		return nil, errors.InternalError(fmt.Sprintf("failed to build request: %v", err))
	}

	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Origin", c.config.BaseURL)
	httpReq.Header.Set("Referer", c.config.BaseURL+"/")
	if cookie != "" {
		httpReq.Header.Set("Cookie", cookie)
	}
	return httpReq, nil
}

func encodeQuery(params cms.Params, escape func(string) string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, escape(p.Key)+"="+escape(paramString(p.Value)))
	}
	return strings.Join(parts, "&")
}

// encodeJSON writes params as one object, keeping their order
func encodeJSON(params cms.Params) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range params {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func paramString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []string:
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(x)
	}
}

// requote leaves reserved and unreserved ASCII alone and percent-encodes
// everything that cannot travel in a request line.
func requote(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch > 0x20 && ch < 0x7f && ch != '"' && ch != '<' && ch != '>' && ch != '\\' &&
			ch != '^' && ch != '`' && ch != '{' && ch != '|' && ch != '}' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func parseResponse(body []byte) (*cms.Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.WithCode(errors.CodeMalformedResponse,
			fmt.Errorf("cms response is not JSON: %s", snippet(body)))
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.MalformedResponse("cms response is not a JSON object")
	}

	resp := &cms.Response{
		Code:  root.Get("code").String(),
		Msg:   root.Get("msg").String(),
		Total: root.Get("total").Int(),
		Body:  body,
	}
	rows := root.Get("rows")
	resp.HasRows = rows.IsArray()
	if resp.HasRows {
		rows.ForEach(func(_, row gjson.Result) bool {
			record := cms.NewRecord()
			if row.IsObject() {
				row.ForEach(func(key, value gjson.Result) bool {
					record.Set(key.String(), value.Value())
					return true
				})
			}
			resp.Rows = append(resp.Rows, record)
			return true
		})
	}
	return resp, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
