package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igfollow/pkg/auth"
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

func newAuthCmd(g *globalOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Instagram session credentials",
		Long: `Manage stored Instagram session cookies.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)`,
	}

	loginCmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Store session cookies for an account",
		Example: `  igfollow auth login
  igfollow auth login myaccount`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var username string
			if len(args) > 0 {
				username = args[0]
			}
			return runLogin(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), username)
		},
	}

	var all bool
	logoutCmd := &cobra.Command{
		Use:   "logout [username]",
		Short: "Remove stored credentials",
		Example: `  igfollow auth logout myaccount
  igfollow auth logout --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.OutOrStdout(), args, all)
		},
	}
	logoutCmd.Flags().BoolVar(&all, "all", false, "remove every stored account")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored accounts with masked cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout())
		},
	}

	guideCmd := &cobra.Command{
		Use:   "guide",
		Short: "Explain how to copy the session cookies from a browser",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			auth.WriteCookieGuide(cmd.OutOrStdout())
		},
	}

	authCmd.AddCommand(loginCmd, logoutCmd, listCmd, guideCmd)
	return authCmd
}

func runLogin(p *prompter, username string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	auth.WriteQuickGuide(p.out)
	fmt.Fprintln(p.out)

	if username == "" {
		username, err = p.readLine("📱 Instagram username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	if username == "" {
		return errors.New("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		answer, _ := p.readLine(fmt.Sprintf("⚠️  Account '%s' already exists. Update credentials? (y/N): ", username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Fprintln(p.out, "🔐 Cookie values are hidden as you type")

	sessionID, err := p.readSecret("sessionid: ")
	if err != nil {
		return fmt.Errorf("failed to read session ID: %w", err)
	}
	csrfToken, err := p.readSecret("csrftoken: ")
	if err != nil {
		return fmt.Errorf("failed to read CSRF token: %w", err)
	}
	cookies, _ := p.readSecret("other cookies (optional, name=value; ...): ")
	userAgent, _ := p.readLine("🌐 User agent (Enter for default): ")

	account := &auth.Account{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		Cookies:   cookies,
		UserAgent: userAgent,
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	sanitized := auth.SanitizeAccount(account)
	fmt.Fprintf(p.out, "\n✅ Account saved: %s (session %s)\n", username, sanitized.SessionID)
	fmt.Fprintf(p.out, "   Use it with: igfollow collect <username> --account %s\n", username)
	return nil
}

func runLogout(out io.Writer, args []string, all bool) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if all {
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove all accounts: %w", err)
		}
		fmt.Fprintln(out, "All accounts removed")
		return nil
	}
	if len(args) == 0 {
		return errors.New("specify a username or --all")
	}

	if err := manager.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	fmt.Fprintf(out, "Account removed: %s\n", args[0])
	return nil
}

func runList(out io.Writer) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		fmt.Fprintln(out, "No stored accounts. Use 'igfollow auth login' to add one.")
		return nil
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Fprintf(out, "   Session ID: %s\n", sanitized.SessionID)
		fmt.Fprintf(out, "   CSRF Token: %s\n", sanitized.CSRFToken)
		if sanitized.UserAgent != "" {
			fmt.Fprintf(out, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(out, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

// prompter reads answers from the operator, hiding secrets on a terminal
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	input, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (p *prompter) readSecret(prompt string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	return p.readLine(prompt)
}
