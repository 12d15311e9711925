package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/relforge/relctl/internal/tools"
	"github.com/relforge/relctl/internal/workspace"
)

var doctorOutput string

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report host and tool readiness for a release",
	Long: `Inspects the host (CPU, RAM, free disk at the output directory) and
every tool the manifest references: availability on PATH, reported
version, and the dependency-manager flag the capability probe would pick.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVarP(&doctorOutput, "output", "o", "table",
		"output format: table or json")
}

// DoctorReport is the full readiness report.
type DoctorReport struct {
	Host  HostReport   `json:"host"`
	Tools []ToolReport `json:"tools"`
}

// HostReport describes the machine a release would run on.
type HostReport struct {
	OS            string `json:"os"`
	Architecture  string `json:"architecture"`
	Platform      string `json:"platform,omitempty"`
	CPUThreads    int    `json:"cpu_threads"`
	RAMTotalBytes uint64 `json:"ram_total_bytes"`
	FreeDiskBytes uint64 `json:"free_disk_bytes"`
}

// ToolReport describes one external tool the manifest references.
type ToolReport struct {
	Name      string `json:"name"`
	Bin       string `json:"bin"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadManifest()
	if err != nil {
		return err
	}

	report := DoctorReport{Host: hostReport(cfg.OutputPath())}

	runner := newRunner(log)
	probes := []struct {
		name string
		argv []string
	}{
		{"formatter", cfg.Format},
		{"linter", cfg.Lint},
		{"tests", cfg.Test},
		{"build", cfg.Build},
		{"upload", cfg.Upload.Command},
	}
	for _, p := range probes {
		report.Tools = append(report.Tools, probeTool(p.name, p.argv))
	}

	// The dependency manager gets the full capability probe so the report
	// shows which prod-only flag a release would use.
	depMgr := tools.NewDepManager(runner, cfg.Deps, cfg.WorkDir, log)
	depReport := probeTool("deps", []string{cfg.Deps.Bin})
	if depReport.Available {
		if version, err := depMgr.ProbeVersion(cmd.Context()); err == nil {
			depReport.Version = version
			depReport.Detail = fmt.Sprintf("prod flags: %v", depMgr.SelectProdFlags(version))
		} else {
			depReport.Detail = fmt.Sprintf("version probe failed: %v", err)
		}
	}
	report.Tools = append(report.Tools, depReport)

	return outputDoctorReport(report, doctorOutput)
}

func hostReport(outputPath string) HostReport {
	hr := HostReport{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	if info, err := host.Info(); err == nil {
		hr.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	if threads, err := cpu.Counts(true); err == nil {
		hr.CPUThreads = threads
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hr.RAMTotalBytes = vm.Total
	}
	if free, err := workspace.FreeDisk(outputPath); err == nil {
		hr.FreeDiskBytes = free
	}
	return hr
}

func probeTool(name string, argv []string) ToolReport {
	tr := ToolReport{Name: name}
	if len(argv) == 0 {
		tr.Detail = "not configured"
		return tr
	}
	tr.Bin = argv[0]

	if _, err := exec.LookPath(argv[0]); err != nil {
		tr.Detail = "not found on PATH"
		return tr
	}
	tr.Available = true
	return tr
}

func outputDoctorReport(report DoctorReport, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Printf("Host: %s/%s", report.Host.OS, report.Host.Architecture)
	if report.Host.Platform != "" {
		fmt.Printf(" (%s)", report.Host.Platform)
	}
	fmt.Println()
	fmt.Printf("  CPU threads: %d\n", report.Host.CPUThreads)
	fmt.Printf("  RAM: %.1f GB\n", float64(report.Host.RAMTotalBytes)/(1<<30))
	fmt.Printf("  Free disk at output: %.1f GB\n", float64(report.Host.FreeDiskBytes)/(1<<30))
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Tool", "Binary", "Available", "Version", "Detail")
	for _, t := range report.Tools {
		available := "no"
		if t.Available {
			available = "yes"
		}
		table.Append(t.Name, t.Bin, available, t.Version, t.Detail)
	}
	return table.Render()
}
