package webutil

const (
	// Header Keys
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderETag               = "ETag"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderSession            = "X-Feed-Session"

	// Content Types
	ContentTypeJSONUTF8      = "application/json; charset=utf-8"
	ContentTypeTextPlainUTF8 = "text/plain; charset=utf-8"
	ContentTypeEPUB          = "application/epub+zip"
	ContentTypeOctetStream   = "application/octet-stream"

	// Cookies
	CookieSession = "feed_session"
)
