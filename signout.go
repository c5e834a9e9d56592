package authcore

import (
	"context"
	"net/http"
)

// signOut shows the sign-out page on GET. A POST ends the session, if there
// is one, and clears every session cookie; signing out without a session
// still succeeds.
func (f *flow) signOut(ctx context.Context) (*Response, error) {
	if f.req.Method == http.MethodGet {
		if f.cfg.Pages.SignOut != "" && f.req.Param("json") != "true" {
			return redirectResponse(f.pageURL(f.cfg.Pages.SignOut, ActionSignOut)), nil
		}
		return jsonResponse(http.StatusOK, map[string]string{"csrfToken": f.csrfToken}), nil
	}

	target := f.cfg.BaseURL
	if cb := f.req.Param("callbackUrl"); cb != "" {
		target = f.redirectTo(ctx, cb)
	}

	if raw, ok := f.Auth.cookies.SessionToken.Read(f.req.Cookies); ok {
		if f.cfg.Session.Strategy == StrategyJWT {
			if claims, valid := f.decodeSession(f.req.Cookies); valid {
				if fn := f.cfg.Events.SignOut; fn != nil {
					f.emit(ctx, "signOut", func() error { return fn(ctx, nil, claims) })
				}
			}
		} else {
			sess, _, err := f.cfg.Adapter.GetSessionAndUser(ctx, raw)
			if err != nil {
				f.logger.WarnContext(ctx, "loading session for sign out failed", "component", "adapter", "error", err)
			}
			if err := f.cfg.Adapter.DeleteSession(ctx, raw); err != nil {
				f.logger.WarnContext(ctx, "deleting session failed", "component", "adapter", "error", err)
			}
			if fn := f.cfg.Events.SignOut; fn != nil && sess != nil {
				f.emit(ctx, "signOut", func() error { return fn(ctx, sess, nil) })
			}
		}
	}

	f.setCookie(f.Auth.cookies.SessionToken.Clear(f.req.Cookies)...)
	resp := redirectResponse(target)
	resp.signedOut = true
	return resp, nil
}
