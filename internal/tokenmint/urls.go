package tokenmint

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SplitFullName делит отображаемое имя по пробельным символам.
// Возвращает первое и последнее слово; средние отбрасываются.
// Меньше двух слов — ok == false, имя не передаётся вовсе.
func SplitFullName(fullName string) (first, last string, ok bool) {
	parts := strings.Fields(fullName)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[len(parts)-1], true
}

// EmbedURL формирует URL iframe встраивания:
// {base}/embed/{kind}/{token}#bordered=..&titled=..&downloads=..
func EmbedURL(baseURL, kind, token string, bordered, titled, downloads bool) string {
	return fmt.Sprintf("%s/embed/%s/%s#bordered=%s&titled=%s&downloads=%s",
		strings.TrimRight(baseURL, "/"),
		kind,
		token,
		strconv.FormatBool(bordered),
		strconv.FormatBool(titled),
		strconv.FormatBool(downloads),
	)
}

// SSORedirectURL формирует URL входа Metabase через JWT SSO.
// Пустой returnTo не добавляется.
func SSORedirectURL(baseURL, token, returnTo string) string {
	q := url.Values{}
	q.Set("jwt", token)
	if returnTo != "" {
		q.Set("return_to", returnTo)
	}
	return strings.TrimRight(baseURL, "/") + "/auth/sso?" + q.Encode()
}
