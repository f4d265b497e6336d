package crawler

import "strings"

// DetectRiskHint scans a page body for markers that the session, not the
// network, is the problem: login walls, captcha interstitials, cookie
// expiry notices.
func DetectRiskHint(body string) string {
	s := strings.TrimSpace(body)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "recaptcha") {
		return "captcha"
	}
	if strings.Contains(s, "验证码") || strings.Contains(s, "人机验证") || strings.Contains(s, "安全验证") {
		return "captcha"
	}
	if strings.Contains(s, "登录") && strings.Contains(s, "密码") {
		return "login_wall"
	}
	if strings.Contains(s, "Cookie失效") || strings.Contains(lower, "cookie expired") || strings.Contains(lower, "cookie invalid") {
		return "cookie_invalid"
	}
	if strings.Contains(lower, "forbidden") || strings.Contains(lower, "access denied") {
		return "forbidden"
	}
	return ""
}
