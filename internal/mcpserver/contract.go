package mcpserver

// ChartFormatContract describes the chart file format that LLM consumers
// should follow when creating charts.
const ChartFormatContract = `# fehu Chart Format Contract

A chart is one YAML file in the vault. It plans money year by year between a
start and a stop date.

## Structure

` + "```" + `yaml
id: retirement                  # OPTIONAL on create, generated when missing; letters, digits, - and _
name: Retirement plan           # REQUIRED
owner: alice@example.com        # OPTIONAL
start_date: 2024-01-01          # REQUIRED to compute; YYYY-MM-DD or RFC 3339
stop_date: 2040-01-01           # REQUIRED to compute; years 2000..2100
savings: 200000                 # OPTIONAL opening balance
moments:                        # named dated events streams can anchor on
  - id: house-sold              # OPTIONAL on create
    name: House sold            # REQUIRED
    date: 2026-06-01            # REQUIRED
streams:                        # yearly cash flows, in display order
  - id: pension                 # OPTIONAL on create
    name: Pension               # REQUIRED
    amount_per_yr: 80000        # REQUIRED; negative means expense
    color: PURPLE               # OPTIONAL: SKY PURPLE RED GREEN ORANGE YELLOW DEFAULT
    boundary: Date_to_Moment    # REQUIRED, see below
    start_date: 2024-01-01
    stop_moment_id: house-sold
` + "```" + `

## Boundaries

` + "`" + `boundary` + "`" + ` names which two anchors bound the stream. Only those two are read:

| boundary | start anchor | stop anchor |
|---|---|---|
| Date_to_Date | start_date | stop_date |
| Date_to_Moment | start_date | stop_moment_id |
| Date_to_Duration | start_date | set_duration (years after start) |
| Moment_to_Date | start_moment_id | stop_date |
| Moment_to_Moment | start_moment_id | stop_moment_id |
| Moment_to_Duration | start_moment_id | set_duration (years after start) |
| Duration_to_Date | set_duration (years before stop) | stop_date |
| Duration_to_Moment | set_duration (years before stop) | stop_moment_id |

## Rules

1. Only the year of each date matters. Both the first and last year count.
2. ` + "`" + `set_duration` + "`" + ` must not be 0. A negative duration inverts the range and
   the stream is reported with a warning and contributes nothing.
3. Every moment id a stream uses must exist in the same chart, or computing
   the chart fails.
4. Amounts are whole currency units per year.
5. Unknown keys are rejected.
`
