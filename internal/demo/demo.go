// Package demo holds the sample chart written into a fresh vault by `fehu seed`.
package demo

import (
	"context"
	"errors"
	"time"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/chartfile"
	"github.com/starford/fehu/internal/chartservice"
)

// ChartID is the id of the demo chart.
const ChartID = "demo123"

// Chart returns "Living without the Pension": a couple's plan from 2024 to
// 2040 where the pension stops when Bob dies and a land sale pays out.
func Chart() *chartfile.Document {
	d := func(y int) chartfile.Date { return chartfile.NewDate(y, time.January, 1) }
	return &chartfile.Document{
		ID:        ChartID,
		Name:      "Living without the Pension",
		Owner:     "alice@test.run",
		StartDate: d(2024),
		StopDate:  d(2040),
		Savings:   200000,
		Moments: []chartfile.Moment{
			{ID: "rip-bob", Name: "RIP Bob", Date: d(2025)},
			{ID: "cleveland-sold", Name: "Cleveland Sold", Date: d(2026)},
		},
		Streams: []chartfile.Stream{
			{
				ID: "cleveland-sale", Name: "Cleveland Sale",
				AmountPerYr: chartfile.Amount(80000), Color: "SKY",
				Boundary:      "Moment_to_Moment",
				StartMomentID: "cleveland-sold", StopMomentID: "cleveland-sold",
			},
			{
				ID: "loan-payments", Name: "Loan Payments",
				AmountPerYr: chartfile.Amount(36000), Color: "RED",
				Boundary:      "Moment_to_Duration",
				StartMomentID: "cleveland-sold", SetDuration: 7,
			},
			{
				ID: "pension", Name: "Pension",
				AmountPerYr: chartfile.Amount(80000), Color: "PURPLE",
				Boundary:  "Date_to_Moment",
				StartDate: d(2024), StopMomentID: "rip-bob",
			},
			{
				ID: "living-expenses", Name: "Living Expenses",
				AmountPerYr: chartfile.Amount(-60000), Color: "ORANGE",
				Boundary:  "Date_to_Date",
				StartDate: d(2024), StopDate: d(2040),
			},
			{
				ID: "ltc-expenses", Name: "Bob's Long Term Care Expenses",
				AmountPerYr: chartfile.Amount(-120000), Color: "GREEN",
				Boundary:    "Duration_to_Moment",
				SetDuration: 2, StopMomentID: "rip-bob",
			},
		},
	}
}

// Seed writes the demo chart through svc. It reports false when the chart
// already exists.
func Seed(ctx context.Context, svc *chartservice.Service) (*chartservice.ChartDetail, bool, error) {
	content, err := chartfile.Marshal(Chart())
	if err != nil {
		return nil, false, err
	}
	detail, err := svc.CreateChart(ctx, content)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return detail, true, nil
}
