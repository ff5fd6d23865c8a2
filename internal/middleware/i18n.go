package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// SupportedLocales are the languages listing copy can be drafted in. The
// first entry is the fallback.
var SupportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(SupportedLocales)

// countryHeaders are set by CDNs and load balancers in front of the API.
var countryHeaders = []string{"CF-IPCountry", "X-Country-Code", "X-Appengine-Country"}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// I18N picks the request locale from X-Locale, then Accept-Language, then the
// language most spoken in the client's country, then defaultLocale. The
// result is always one of SupportedLocales.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	fallback := normalizeLocale(defaultLocale)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			locale := detectLocale(r, fallback, country)
			w.Header().Set("Content-Language", locale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return normalizeLocale(v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if tags, _, err := language.ParseAcceptLanguage(v); err == nil && len(tags) > 0 {
			if locale, ok := match(tags...); ok {
				return locale
			}
		}
	}
	if country != "" {
		if region, err := language.ParseRegion(country); err == nil {
			// und-XX expands to the region's most likely language.
			if tag, err := language.Compose(language.Und, region); err == nil {
				if locale, ok := match(tag); ok {
					return locale
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return SupportedLocales[0].String()
}

// match returns the supported base language closest to tags. ok is false when
// the best candidate is only a default pick.
func match(tags ...language.Tag) (string, bool) {
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return SupportedLocales[idx].String(), true
}

// normalizeLocale maps any BCP 47 tag onto a supported locale, falling back
// to the first one.
func normalizeLocale(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return SupportedLocales[0].String()
	}
	if v, ok := match(tag); ok {
		return v
	}
	return SupportedLocales[0].String()
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return SupportedLocales[0].String()
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

// ResolveCountry returns an upper-case ISO country code from proxy headers,
// the region subtag of the requested locale, or the GeoIP lookup, in that
// order. It returns "" when nothing is known.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); len(v) == 2 && !strings.EqualFold(v, "XX") {
			return strings.ToUpper(v)
		}
	}
	for _, h := range []string{r.Header.Get("X-Locale"), r.Header.Get("Accept-Language")} {
		if region := localeRegion(h); region != "" {
			return region
		}
	}
	if lookup != nil {
		if ip := clientIPForRateLimit(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}

// localeRegion returns the explicit region of the first tag in header.
func localeRegion(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	region, conf := tags[0].Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}
