package authcore

import (
	"context"
	"net/http"

	"github.com/panyam/authcore/jwt"
)

// session answers with the current session, or null. A POST carries an
// update handed to the JWT and Session callbacks.
func (f *flow) session(ctx context.Context) (*Response, error) {
	var update map[string]string
	if f.req.Method == http.MethodPost {
		update = f.fields()
	}
	raw, ok := f.Auth.cookies.SessionToken.Read(f.req.Cookies)
	if !ok {
		return jsonResponse(http.StatusOK, jsonNull), nil
	}
	var data *SessionData
	var err error
	if f.cfg.Session.Strategy == StrategyJWT {
		data, err = f.jwtSession(ctx, raw, update)
	} else {
		data, err = f.databaseSession(ctx, raw, update)
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		f.setCookie(f.Auth.cookies.SessionToken.Clear(f.req.Cookies)...)
		return jsonResponse(http.StatusOK, jsonNull), nil
	}
	if fn := f.cfg.Events.Session; fn != nil {
		f.emit(ctx, "session", func() error { return fn(ctx, data) })
	}
	return jsonResponse(http.StatusOK, data), nil
}

// jwtSession decodes the token and, under the sliding policy, re-issues it
// once UpdateAge has passed since it was issued.
func (f *flow) jwtSession(ctx context.Context, raw string, update map[string]string) (*SessionData, error) {
	res := f.codec.Decode(raw)
	if res.Absent() {
		return nil, nil
	}
	claims := res.Claims
	if fn := f.cfg.Callbacks.JWT; fn != nil {
		p := JWTParams{Token: claims, Update: update}
		if update != nil {
			p.Trigger = TriggerUpdate
		}
		next, err := fn(ctx, p)
		if err != nil {
			f.logger.WarnContext(ctx, "jwt callback failed", "error", err)
			return nil, nil
		}
		if next == nil {
			return nil, nil
		}
		claims = next
	}

	expires := res.Claims.ExpiresAt()
	sliding := f.cfg.Session.Policy == ExpirySliding &&
		!f.now.Before(res.Claims.IssuedAt().Add(f.cfg.Session.UpdateAge))
	if update != nil || sliding {
		token, err := f.codec.Encode(claims)
		if err != nil {
			return nil, configError("encoding session token: %v", err)
		}
		expires = f.now.Add(f.cfg.JWT.MaxAge)
		f.setCookie(f.Auth.cookies.SessionToken.Chunk(token, f.now, expires, f.req.Cookies)...)
	}

	data := &SessionData{
		User: &SessionUser{
			ID:    claims.Subject(),
			Name:  claims.String("name"),
			Email: claims.String("email"),
			Image: claims.String("picture"),
		},
		Expires: expires,
	}
	return f.shapeSession(ctx, SessionParams{Session: data, Token: claims, Update: update})
}

// databaseSession loads the session row. Expired rows are deleted; under
// the sliding policy a row is extended once UpdateAge has passed since it
// was last extended.
func (f *flow) databaseSession(ctx context.Context, token string, update map[string]string) (*SessionData, error) {
	db := f.cfg.Adapter
	sess, user, err := db.GetSessionAndUser(ctx, token)
	if err != nil {
		return nil, adapterError("GetSessionAndUser", err)
	}
	if sess == nil || user == nil {
		return nil, nil
	}
	if sess.IsExpired(f.now) {
		if err := db.DeleteSession(ctx, token); err != nil {
			f.logger.WarnContext(ctx, "deleting expired session failed", "component", "adapter", "error", err)
		}
		return nil, nil
	}

	cfg := f.cfg.Session
	refreshAt := sess.Expires.Add(-cfg.MaxAge).Add(cfg.UpdateAge)
	if cfg.Policy == ExpirySliding && !f.now.Before(refreshAt) {
		extended, err := db.UpdateSession(ctx, &Session{
			SessionToken: sess.SessionToken,
			UserID:       sess.UserID,
			Expires:      f.now.Add(cfg.MaxAge),
		})
		if err != nil {
			return nil, adapterError("UpdateSession", err)
		}
		if extended != nil {
			sess = extended
		}
		f.setCookie(f.Auth.cookies.SessionToken.Chunk(sess.SessionToken, f.now, sess.Expires, f.req.Cookies)...)
	}

	data := &SessionData{User: defaultSessionUser(user), Expires: sess.Expires}
	return f.shapeSession(ctx, SessionParams{Session: data, User: user, Update: update})
}

func (f *flow) shapeSession(ctx context.Context, p SessionParams) (*SessionData, error) {
	fn := f.cfg.Callbacks.Session
	if fn == nil {
		return p.Session, nil
	}
	data, err := fn(ctx, p)
	if err != nil {
		f.logger.WarnContext(ctx, "session callback failed", "error", err)
		return nil, nil
	}
	return data, nil
}

// decodeSession reads a jwt session without refreshing it.
func (a *Auth) decodeSession(cookies map[string]string) (jwt.Claims, bool) {
	raw, ok := a.cookies.SessionToken.Read(cookies)
	if !ok {
		return nil, false
	}
	res := a.codec.Decode(raw)
	return res.Claims, res.Valid
}
