package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

const (
	errNoCommand          = "No command was provided to plugin."
	errUnsupportedCommand = "Invalid/unsupported command was provided to plugin: "
)

// handler reads the request of one verb from in and produces its response.
type handler func(ctx context.Context, p *Plugin, in *Reader) (any, error)

var handlers = map[string]handler{
	protocol.MetadataCommand: func(_ context.Context, p *Plugin, in *Reader) (any, error) {
		req, err := in.MetadataRequest()
		if err != nil {
			return nil, err
		}
		p.dump("metadata request", req)
		return p.Metadata(req)
	},
	protocol.KeyCommand: func(_ context.Context, p *Plugin, in *Reader) (any, error) {
		req, err := in.KeyRequest()
		if err != nil {
			return nil, err
		}
		p.dump("key request", req)
		return p.DescribeKey(req)
	},
	protocol.SignatureCommand: func(ctx context.Context, p *Plugin, in *Reader) (any, error) {
		req, err := in.SignatureRequest()
		if err != nil {
			return nil, err
		}
		p.dump("signature request", req)
		return p.GenerateSignature(ctx, req)
	},
}

// Run executes the command named by args[0], reading its request from stdin and
// writing the response to stdout. Any failure is written to stderr as an error
// response. Run returns the process exit code.
func (p *Plugin) Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	if err := p.execute(ctx, args, stdin, stdout); err != nil {
		perr := protocol.AsError(err)
		p.logger.Error("command failed",
			zap.Strings("args", args),
			zap.String("errorCode", string(perr.Code)),
			zap.Error(err))
		if werr := WriteErrorResponse(stderr, perr); werr != nil {
			p.logger.Error("writing error response", zap.Error(werr))
		}
		return 1
	}
	return 0
}

func (p *Plugin) execute(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	// cobra serves hidden verbs such as __complete on its own, only known verbs reach it
	if len(args) > 0 {
		if _, ok := handlers[args[0]]; !ok {
			return protocol.NewGenericError(errUnsupportedCommand + args[0])
		}
	}
	cmd := p.command(NewReader(stdin), stdout)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(ctx)
}

// command builds the cobra tree: one subcommand per verb, and a root that
// rejects everything else. Flag parsing is disabled throughout since notation
// passes nothing but the verb.
func (p *Plugin) command(in *Reader, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:                "notation-" + Name,
		Short:              Description,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return protocol.NewGenericError(errNoCommand)
			}
			return protocol.NewGenericError(errUnsupportedCommand + args[0])
		},
	}
	root.SetHelpCommand(&cobra.Command{
		Use:    "help",
		Hidden: true,
		RunE: func(*cobra.Command, []string) error {
			return protocol.NewGenericError(errUnsupportedCommand + "help")
		},
	})

	for verb, h := range handlers {
		h := h // per-iteration copy; go 1.21 loop variables are shared
		root.AddCommand(&cobra.Command{
			Use:                verb,
			Args:               cobra.ArbitraryArgs,
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				resp, err := h(cmd.Context(), p, in)
				if err != nil {
					return err
				}
				p.dump("response", resp)
				return writeJSONLine(stdout, resp)
			},
		})
	}
	return root
}

func (p *Plugin) dump(msg string, v any) {
	if ce := p.logger.Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(zap.String("value", spew.Sdump(v)))
	}
}

// WriteErrorResponse writes err to w as a single line error response. Errors
// that are not a *protocol.Error are reported with the generic error code.
func WriteErrorResponse(w io.Writer, err error) error {
	return writeJSONLine(w, protocol.AsError(err).Response())
}

// writeJSONLine writes v as a single line of JSON.
func writeJSONLine(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}
