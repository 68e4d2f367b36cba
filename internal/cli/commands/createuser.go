package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aiokaizen/bear-vision/internal/lava/auth"
)

// CreateUserOptions holds options for the createuser command.
type CreateUserOptions struct {
	Email            string
	FirstName        string
	LastName         string
	Superuser        bool
	Groups           []string
	GeneratePassword bool
}

// NewCreateUserCommand creates the createuser command.
func NewCreateUserCommand() *cobra.Command {
	opts := &CreateUserOptions{}

	cmd := &cobra.Command{
		Use:   "createuser <username>",
		Short: "Create a user account",
		Long: `Create a user account. The password is prompted for twice unless
--generate-password is given, in which case a temporary password is printed.`,
		Example: `  bearvision createuser mouad --email mouad@example.com --group ADMINISTRATOR
  bearvision createuser trader --generate-password`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateUser(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "Last name")
	cmd.Flags().BoolVar(&opts.Superuser, "superuser", false, "Grant every permission")
	cmd.Flags().StringSliceVar(&opts.Groups, "group", nil, "Group to add the user to (repeatable, created when missing)")
	cmd.Flags().BoolVar(&opts.GeneratePassword, "generate-password", false, "Generate a temporary password instead of prompting")

	return cmd
}

func runCreateUser(cmd *cobra.Command, username string, opts *CreateUserOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	svc := auth.NewService(auth.Config{Store: cc.Store, Logger: cc.Logger})

	var groups []*auth.Group
	for _, name := range opts.Groups {
		g, _, err := svc.EnsureGroup(ctx, name)
		if err != nil {
			return err
		}
		groups = append(groups, g)
	}

	createOpts := auth.CreateOptions{
		GeneratePassword: opts.GeneratePassword,
		ForceActive:      true,
		Groups:           groups,
	}
	if !opts.GeneratePassword {
		pw, err := promptPassword(cmd)
		if err != nil {
			return err
		}
		createOpts.Password = pw
	}

	u := &auth.User{
		Username:    username,
		Email:       opts.Email,
		FirstName:   opts.FirstName,
		LastName:    opts.LastName,
		IsSuperuser: opts.Superuser,
	}
	res := svc.CreateUser(ctx, u, createOpts)
	if !res.IsSuccess() {
		msgs := []string{res.Message()}
		for _, fe := range res.Errors() {
			msgs = append(msgs, fe.Field+": "+fe.Message)
		}
		return errors.New(strings.Join(msgs, "\n  "))
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, res.Message())
	if u.TmpPassword != "" {
		_, _ = fmt.Fprintf(out, "Temporary password: %s\n", u.TmpPassword)
	}
	return nil
}

// promptPassword reads the password twice. Input is hidden on terminals;
// otherwise two lines are read from the command input.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	prompt := cmd.ErrOrStderr()

	var read func() (string, error)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		read = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			_, _ = fmt.Fprintln(prompt)
			return string(b), err
		}
	} else {
		r := bufio.NewReader(in)
		read = func() (string, error) {
			line, err := r.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return "", fmt.Errorf("failed to read password: %w", err)
			}
			return strings.TrimRight(line, "\r\n"), nil
		}
	}

	_, _ = fmt.Fprint(prompt, "Password: ")
	first, err := read()
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprint(prompt, "Password (again): ")
	second, err := read()
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if first == "" {
		return "", errors.New("password must not be empty")
	}
	return first, nil
}
