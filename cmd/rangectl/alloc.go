package main

import (
	"fmt"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"github.com/henderiw/rangecollection/pkg/rangetable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/selection"
)

type allocOptions struct {
	size     int64
	claims   []string
	releases []string
	labels   string
	selector string
}

func newAllocCmd() *cobra.Command {
	o := &allocOptions{}

	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Claim and release ranges in an ID table and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}
	cmd.Flags().Int64Var(&o.size, "size", 4096, "number of IDs in the table")
	cmd.Flags().StringArrayVar(&o.claims, "claim", nil, `range to claim, e.g. "[10, 20)"`)
	cmd.Flags().StringArrayVar(&o.releases, "release", nil, `range to release, e.g. "[12, 14)"`)
	cmd.Flags().StringVar(&o.labels, "labels", "", "labels of the claims, e.g. owner=a,type=b")
	cmd.Flags().StringVar(&o.selector, "match", "", "only print claims with these labels, e.g. owner=a")
	return cmd
}

func (o *allocOptions) run(cmd *cobra.Command) error {
	claimLabels, err := labels.ConvertSelectorToLabelsMap(o.labels)
	if err != nil {
		return err
	}
	matchLabels, err := labels.ConvertSelectorToLabelsMap(o.selector)
	if err != nil {
		return err
	}
	selector, err := getLabelSelector(matchLabels)
	if err != nil {
		return err
	}

	t, err := rangetable.NewTable(o.size, nil, nil)
	if err != nil {
		return err
	}
	for _, s := range o.claims {
		rng, err := rangecollection.ParseRange(s)
		if err != nil {
			return err
		}
		if err := t.ClaimRange(rng, claimLabels); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"range": rng.String(), "labels": claimLabels.String()}).Debug("claimed")
	}
	for _, s := range o.releases {
		rng, err := rangecollection.ParseRange(s)
		if err != nil {
			return err
		}
		if err := t.ReleaseRange(rng); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"range": rng.String()}).Debug("released")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "used: %s\n", t.Used())
	fmt.Fprintf(out, "free: %s\n", t.Free())
	for _, c := range t.GetByLabel(selector) {
		fmt.Fprintln(out, c.String())
	}
	return nil
}

func getLabelSelector(l map[string]string) (labels.Selector, error) {
	fullselector := labels.NewSelector()
	for k, v := range l {
		req, err := labels.NewRequirement(k, selection.Equals, []string{v})
		if err != nil {
			return nil, err
		}
		fullselector = fullselector.Add(*req)
	}
	return fullselector, nil
}
