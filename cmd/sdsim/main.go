// cmd/sdsim is the command-line front end over internal/sim:
// "run" compiles and executes a project, "check" compiles only and
// reports per-variable equation errors. Grounded on the teacher's
// cmd/sentra subcommand dispatch, rebuilt on github.com/spf13/cobra
// (named in SPEC_FULL.md's domain stack) since this CLI has two small
// subcommands, each with a single --model flag, rather than sentra's
// dozen-plus command set --
// cobra's declarative Command tree fits that shape more directly than
// porting sentra's hand-rolled alias/switch dispatch would.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sdsim/internal/build"
	"sdsim/internal/datamodel"
	"sdsim/internal/dimensions"
	"sdsim/internal/projectio"
	"sdsim/internal/sim"
)

func main() {
	root := &cobra.Command{
		Use:   "sdsim",
		Short: "System dynamics simulation core",
	}
	root.AddCommand(runCmd(), checkCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var rootModel string
	cmd := &cobra.Command{
		Use:   "run <project.yaml>",
		Short: "Compile and run a project, printing TSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := projectio.LoadFile(args[0])
			if err != nil {
				return err
			}
			res, err := sim.Run(project, rootModel)
			if err != nil {
				return err
			}
			return res.WriteTSV(os.Stdout)
		},
	}
	cmd.Flags().StringVar(&rootModel, "model", "main", "root model to run")
	return cmd
}

func checkCmd() *cobra.Command {
	var rootModel string
	cmd := &cobra.Command{
		Use:   "check <project.yaml>",
		Short: "Compile only and report per-variable equation errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := projectio.LoadFile(args[0])
			if err != nil {
				return err
			}
			failed, err := checkProject(project, rootModel)
			if err != nil {
				return err
			}
			if failed {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rootModel, "model", "main", "unused: check reports errors for every model in the project")
	return cmd
}

// checkProject mirrors internal/sim.Run's build stage only, surfacing
// every BuiltVariable.Errors entry instead of compiling and running.
func checkProject(project *datamodel.Project, rootModel string) (failed bool, err error) {
	catalog := buildCatalog(project)
	bp, err := build.Build(project, catalog)
	if err != nil {
		return false, err
	}

	for modelName, bm := range bp.Models {
		for _, name := range bm.Order {
			bv := bm.Variables[name]
			for _, verr := range bv.Errors {
				failed = true
				fmt.Fprintf(os.Stderr, "%s.%s: %v\n", modelName, name, verr)
			}
		}
	}
	if failed {
		fmt.Fprintln(os.Stderr, "VariablesHaveErrors")
	} else {
		fmt.Println("ok")
	}
	return failed, nil
}

// buildCatalog duplicates internal/sim's unexported converter; kept
// local rather than exported since the CLI is the only caller outside
// internal/sim itself that needs a catalog without a full Run.
func buildCatalog(project *datamodel.Project) *dimensions.Catalog {
	dims := make([]dimensions.Dimension, 0, len(project.Dimensions))
	for _, d := range project.Dimensions {
		if d.Kind == datamodel.DimIndexed {
			dims = append(dims, dimensions.NewIndexed(d.Name, d.Size))
			continue
		}
		dims = append(dims, dimensions.NewNamed(d.Name, d.Elements))
	}
	for i, d := range project.Dimensions {
		if d.Kind == datamodel.DimNamed && d.MapsTo != "" {
			dims[i] = dims[i].WithMapsTo(d.MapsTo)
		}
	}
	return dimensions.NewCatalog(dims)
}
