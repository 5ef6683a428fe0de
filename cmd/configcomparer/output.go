package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BaSui01/configcomparer/compare"
	"github.com/BaSui01/configcomparer/config"
)

// =============================================================================
// 📋 输出视图
// =============================================================================

// recordView 一条记录的输出形式
type recordView struct {
	Identifier  string                      `json:"identifier"`
	Namespace   string                      `json:"namespace"`
	Key         string                      `json:"key"`
	Values      map[string]compare.EnvValue `json:"values"`
	Consistency compare.Status              `json:"consistency"`
	Skipped     bool                        `json:"skipped"`
}

// runView 一次比对的输出形式
type runView struct {
	ID           string                 `json:"id"`
	Backend      compare.Backend        `json:"backend"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   time.Time              `json:"finished_at"`
	Environments map[string]bool        `json:"environments"`
	Counts       map[compare.Status]int `json:"counts"`
	Records      []recordView           `json:"records"`
}

func newRunView(run *compare.Run, filter compare.Filter) runView {
	records := run.Sorted(filter)
	view := runView{
		ID:           run.ID,
		Backend:      run.Backend,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Environments: run.Environments,
		Counts:       make(map[compare.Status]int, len(compare.Statuses())),
		Records:      make([]recordView, 0, len(records)),
	}
	for _, st := range compare.Statuses() {
		view.Counts[st] = 0
	}
	for st, n := range run.Counts() {
		view.Counts[st] = n
	}
	for _, rec := range records {
		view.Records = append(view.Records, recordView{
			Identifier:  rec.Key.Identifier,
			Namespace:   rec.Key.Namespace,
			Key:         rec.Key.Key,
			Values:      rec.Values,
			Consistency: rec.Consistency,
			Skipped:     rec.Skipped,
		})
	}
	return view
}

// sharedView 跨服务重复配置的输出形式
type sharedView struct {
	ID           string                           `json:"id"`
	Environments map[string]bool                  `json:"environments"`
	Shared       map[string][]compare.SharedValue `json:"shared"`
}

func newSharedView(run *compare.Run, filter compare.Filter) sharedView {
	return sharedView{
		ID:           run.ID,
		Environments: run.Environments,
		Shared:       run.SharedValues(filter),
	}
}

// writeJSON 缩进输出任意值
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// 🖨️ 表格输出
// =============================================================================

const maxCellWidth = 48

var cellReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// cell 压平换行并截断过长的值
func cell(s string) string {
	s = cellReplacer.Replace(s)
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-1]) + "…"
	}
	return s
}

// envCell 未查询的环境显示 "-"，查询成功但没有该项显示 "(none)"
func envCell(rec recordView, env string) string {
	v, ok := rec.Values[env]
	if !ok {
		return "-"
	}
	if v.Value == nil {
		return "(none)"
	}
	return cell(*v.Value)
}

func writeRunTable(w io.Writer, view runView) error {
	envs := config.EnvironmentNames()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{"IDENTIFIER", "NAMESPACE", "KEY"}, envs...)
	header = append(header, "CONSISTENCY", "SKIP")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, rec := range view.Records {
		row := []string{cell(rec.Identifier), cell(rec.Namespace), cell(rec.Key)}
		for _, env := range envs {
			row = append(row, envCell(rec, env))
		}
		skip := ""
		if rec.Skipped {
			skip = "yes"
		}
		row = append(row, string(rec.Consistency), skip)
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "run %s (%s)\n", view.ID, view.Backend)
	fmt.Fprintf(w, "environments: %s\n", environmentSummary(view.Environments))

	counts := make([]string, 0, len(view.Counts))
	for _, st := range compare.Statuses() {
		counts = append(counts, fmt.Sprintf("%s=%d", st, view.Counts[st]))
	}
	_, err := fmt.Fprintf(w, "records: %d shown, %s\n", len(view.Records), strings.Join(counts, " "))
	return err
}

func environmentSummary(envs map[string]bool) string {
	names := make([]string, 0, len(envs))
	for env := range envs {
		names = append(names, env)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, env := range names {
		state := "unavailable"
		if envs[env] {
			state = "ok"
		}
		parts = append(parts, env+"="+state)
	}
	return strings.Join(parts, " ")
}

func writeSharedTable(w io.Writer, view sharedView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENVIRONMENT\tKEY\tVALUE\tSOURCES")
	groups := 0
	for _, env := range config.EnvironmentNames() {
		for _, sv := range view.Shared[env] {
			sources := make([]string, 0, len(sv.Sources))
			for _, src := range sv.Sources {
				sources = append(sources, src.Identifier+"/"+src.Namespace)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", env, cell(sv.Key), cell(sv.Value), strings.Join(sources, ", "))
			groups++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "run %s\n", view.ID)
	_, err := fmt.Fprintf(w, "shared values: %d groups, environments: %s\n", groups, environmentSummary(view.Environments))
	return err
}

func writeProbeTable(w io.Writer, results []compare.ProbeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENVIRONMENT\tSSH\tDATABASE\tVERSION\tERROR")
	for _, res := range results {
		var errs []string
		if res.SSHError != "" {
			errs = append(errs, "ssh: "+res.SSHError)
		}
		if res.DatabaseError != "" {
			errs = append(errs, "database: "+res.DatabaseError)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			res.Environment, res.SSH, res.Database, res.Version, cellReplacer.Replace(strings.Join(errs, "; ")))
	}
	return tw.Flush()
}
