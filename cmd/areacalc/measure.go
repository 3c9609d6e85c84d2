package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fpang/area-calc/internal/cli"
	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/session"
	"github.com/fpang/area-calc/internal/units"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	imageFlag string
	unitFlag  string
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Measure one photo and print the result",
	Long: `Measure submits a single photo with the given unit, prints the result and
exits. The exit status is 1 when the measurement fails.

Examples:
  areacalc measure --image shape.jpg --unit cm
  areacalc measure -i drawing.png -u custom`,
	Args: cobra.NoArgs,
	RunE: runMeasure,
}

func init() {
	measureCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "photo to measure")
	measureCmd.Flags().StringVarP(&unitFlag, "unit", "u", "", "unit of the annotations: cm, inches, meters, custom")
	_ = measureCmd.MarkFlagRequired("image")
	_ = measureCmd.MarkFlagRequired("unit")
}

func runMeasure(cmd *cobra.Command, args []string) error {
	sel, err := cli.ValidateImagePath(imageFlag)
	if err != nil {
		return err
	}
	unit, err := cli.ValidateUnit(unitFlag)
	if err != nil {
		return err
	}
	client, err := cli.InitMeasureClient(cfg)
	if err != nil {
		return err
	}

	logStartup("areacalc measure", false)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctrl := session.NewController(client, nil)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })

	view, err := submitOnce(ctrl, sel, cli.DescribeImage(sel.Path), unit)
	cancel()
	if waitErr := g.Wait(); waitErr != nil {
		return waitErr
	}
	if err != nil {
		return cli.HandleMeasurementError(err)
	}

	fmt.Fprint(cmd.OutOrStdout(), cli.RenderView(view))
	if view.Status != session.Succeeded {
		return cli.HandleMeasurementError(view.Err)
	}
	return nil
}

// submitOnce selects the image and unit, submits, and waits for the outcome.
func submitOnce(ctrl *session.Controller, sel filehandler.Selection, info string, unit units.Unit) (session.View, error) {
	if err := ctrl.SelectImage(sel, info); err != nil {
		return session.View{}, err
	}
	if err := ctrl.SelectUnit(unit); err != nil {
		return session.View{}, err
	}
	settled, err := ctrl.Submit()
	if err != nil {
		return session.View{}, err
	}
	view := <-settled
	if view.Status != session.Succeeded && view.Err == nil {
		return view, errors.New("measurement interrupted")
	}
	return view, nil
}
