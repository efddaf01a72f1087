package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Rewind/internal/server"
	"github.com/SmitUplenchwar2687/Rewind/internal/session"
)

func newPushCmd(g *globalOptions) *cobra.Command {
	var (
		serverURL string
		sessionID string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Upload a recording into a running server session",
		Long: `Uploads a .gz recording to a rewind server. With --session the file is
bound to that page's session and the open player mounts it immediately.
Without it a new session is created and its ID printed.`,
		Example: `  rewind push session.json.gz --session 6f1c...
  rewind push session.json.gz --server http://replay.internal:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := g.load(cmd); err != nil {
				return err
			}

			c := &pushClient{
				base: strings.TrimRight(serverURL, "/"),
				http: &http.Client{Timeout: timeout},
			}
			ctx := cmd.Context()

			if sessionID == "" {
				sess, err := c.createSession(ctx)
				if err != nil {
					return err
				}
				sessionID = sess.ID
			}

			sess, err := c.upload(ctx, sessionID, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pushed %s to session %s\n", filepath.Base(args[0]), sess.ID)
			if sess.Summary != nil {
				fmt.Fprintf(out, "  Events:    %d\n", sess.Summary.Events)
				fmt.Fprintf(out, "  Duration:  %s\n", sess.Summary.Duration)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the rewind server")
	cmd.Flags().StringVar(&sessionID, "session", "", "session to bind (default: create one)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	return cmd
}

type pushClient struct {
	base string
	http *http.Client
}

// apiError is the server's JSON error body.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *pushClient) createSession(ctx context.Context) (*session.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/sessions", nil)
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := c.do(req, http.StatusCreated, &sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &sess, nil
}

func (c *pushClient) upload(ctx context.Context, id, path string) (*session.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	// The server gates on the name or a declared gzip type.
	contentType := "application/octet-stream"
	if strings.HasSuffix(path, ".gz") {
		contentType = "application/gzip"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path))},
		"Content-Type":        {contentType},
	})
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/sessions/"+id+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(server.OriginHeader, session.OriginPush)

	var resp struct {
		Session *session.Session `json:"session"`
	}
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("uploading to session %s: %w", id, err)
	}
	return resp.Session, nil
}

func (c *pushClient) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e apiError
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s (status %d, %s)", e.Error, resp.StatusCode, e.Code)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
