package api

import (
	"errors"
	"net/http"
	"strings"

	"art-store/internal/apperr"
	"art-store/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	adminCookie    = "admin_auth"
	adminLoginPath = "/admin/login"
)

const loginPageHTML = `<!doctype html>
<html lang="de"><head><meta charset="utf-8"><title>Admin Login</title></head>
<body>
<form method="post" action="/admin/login">
<label>Passwort <input type="password" name="password" autofocus></label>
<button type="submit">Anmelden</button>
</form>
</body></html>`

const adminPageHTML = `<!doctype html>
<html lang="de"><head><meta charset="utf-8"><title>Admin</title></head>
<body>
<form method="post" action="/api/admin/artworks" enctype="multipart/form-data">
<input name="title" placeholder="Titel" required>
<textarea name="description" placeholder="Beschreibung"></textarea>
<input name="size" placeholder="Größe">
<input name="price" placeholder="Preis" required>
<input name="currency" value="EUR" maxlength="3">
<label><input type="checkbox" name="available" value="true" checked> verfügbar</label>
<input type="file" name="images" accept="image/*" multiple>
<button type="submit">Speichern</button>
</form>
<form method="post" action="/admin/logout"><button type="submit">Abmelden</button></form>
</body></html>`

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

// isProtected reports whether path sits behind the admin gate. The login
// endpoints stay reachable so the redirect target never loops.
func isProtected(path string) bool {
	if !hasPathPrefix(path, "/admin") && !hasPathPrefix(path, "/api/admin") {
		return false
	}
	return !hasPathPrefix(path, adminLoginPath) && !hasPathPrefix(path, "/api/admin/login")
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// adminGate checks the session cookie on every protected path. HTTP Basic
// credentials with the admin password are accepted too. On admin pages they
// upgrade to a session cookie; API calls stay stateless so scripted callers
// do not leave a session behind per request.
func (h *Handler) adminGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isProtected(c.Request.URL.Path) {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if token, err := c.Cookie(adminCookie); err == nil && h.auth.Authenticate(ctx, token) {
			c.Next()
			return
		}

		isAPI := strings.HasPrefix(c.Request.URL.Path, "/api/")
		if _, password, ok := c.Request.BasicAuth(); ok && h.auth.CheckPassword(password) {
			if !isAPI {
				if token, err := h.auth.Login(ctx, password); err == nil {
					h.setAdminCookie(c, token)
				}
			}
			c.Next()
			return
		}

		if isAPI {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  "UNAUTHORIZED",
			})
			return
		}
		c.Redirect(http.StatusFound, adminLoginPath)
		c.Abort()
	}
}

func (h *Handler) setAdminCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookie, token, int(h.auth.SessionTTL().Seconds()), "/", "", true, true)
}

// login accepts JSON {password} or a form field. Form posts are redirected
// into the admin area, JSON callers get {ok: true}.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.writeError(c, apperr.InvalidRequest("invalid login body"))
		return
	}

	token, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(req.Password))
	if errors.Is(err, service.ErrAdminNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "admin password not configured",
			"code":  "NOT_CONFIGURED",
		})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setAdminCookie(c, token)
	if c.ContentType() == gin.MIMEJSON {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

// logout revokes the session and clears the cookie
func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(adminCookie); err == nil {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			h.writeError(c, err)
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) loginPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPageHTML))
}

func (h *Handler) adminPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(adminPageHTML))
}
