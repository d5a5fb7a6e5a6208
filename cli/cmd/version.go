package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/cli/render"
	"github.com/jelly-fpga/fpgaload/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version  string `json:"version" yaml:"version"`
	Protocol int    `json:"protocol" yaml:"protocol"`
	Commit   string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command. It does not contact the agent.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: OutputFlags(),
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitInvalidInput)
			}
			return r.Render(VersionResponse{
				Version:  types.Version,
				Protocol: types.ProtocolVersion,
				Commit:   commit,
			})
		},
	}
}
