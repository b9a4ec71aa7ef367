package gmail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// getTokenFromWeb runs the installed-app flow with a loopback redirect.
func (c *Client) getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting local callback listener: %w", err)
	}
	config.RedirectURL = "http://" + listener.Addr().String()

	state := uuid.New().String()
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	srv := &http.Server{Handler: callbackHandler(state, codes, errs)}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errs <- err:
			default:
			}
		}
	}()
	defer srv.Shutdown(context.Background())

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser to authorize read-only Gmail access:\n%v\n", authURL)

	select {
	case code := <-codes:
		tok, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
		}
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if reason := q.Get("error"); reason != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			select {
			case errs <- fmt.Errorf("authorization denied: %s", reason):
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		select {
		case codes <- code:
		default:
		}
	})
}
