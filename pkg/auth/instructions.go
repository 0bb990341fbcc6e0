package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide writes step-by-step instructions for copying the session
// cookies out of a logged-in browser.
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"📚 INSTAGRAM SESSION COOKIES",
		rule,
		"",
		"igfollow sends your browser session with every request.",
		"",
		"🌐 STEP 1: Log in at https://www.instagram.com",
		"",
		"🔧 STEP 2: Open Developer Tools",
		"   • Chrome/Edge/Brave/Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)",
		"   • Safari: enable the Develop menu, then Cmd+Option+I",
		"",
		"🍪 STEP 3: Find the cookies",
		"   Application (Chrome) or Storage (Firefox) → Cookies → https://www.instagram.com",
		"",
		"🔑 STEP 4: Copy these values",
		"   sessionid   long value containing %3A",
		"   csrftoken   32 characters",
		"   optional    ds_user_id, mid, ig_did (paste as name=value; name=value)",
		"",
		"⚠️  These cookies give full access to the account. Never share them.",
		"   Use a secondary account for collection runs.",
		rule,
		"",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// WriteQuickGuide writes the condensed version of the cookie guide
func WriteQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "🍪 F12 → Application → Cookies → instagram.com")
	fmt.Fprintln(w, "   Need: sessionid and csrftoken. Type 'help' for detailed instructions")
}
