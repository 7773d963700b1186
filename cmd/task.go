package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and manage tasks",
}

func init() {
	rootCmd.AddCommand(taskCmd)
}

// --- list ---

var (
	taskListStatus   string
	taskListAssignee string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status or assignee",
	RunE:  runTaskList,
}

func init() {
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "filter by status")
	taskListCmd.Flags().StringVar(&taskListAssignee, "assignee", "", "filter by assignee")
	taskCmd.AddCommand(taskListCmd)
}

func runTaskList(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	filter := store.TaskFilter{Status: domain.TaskStatus(taskListStatus)}
	if taskListAssignee != "" {
		bee, err := beeArg(taskListAssignee)
		if err != nil {
			return exitErr(ExitError, err)
		}
		filter.AssignedTo = bee
	}

	tasks, err := h.store.ListTasks(cmd.Context(), filter)
	if err != nil {
		return exitErr(ExitError, err)
	}
	for _, t := range tasks {
		assignee := "unassigned"
		if t.AssignedTo() != nil {
			assignee = string(*t.AssignedTo())
		}
		fmt.Printf("%s\t%-11s\t%-8s\t%s\t%s\n", t.ID(), t.Status(), t.Priority(), assignee, t.Title())
	}
	return nil
}

// --- details ---

var taskDetailsJSON bool

var taskDetailsCmd = &cobra.Command{
	Use:   "details <task-id>",
	Short: "Show a task's full progress: dependencies, assignments, activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDetails,
}

func init() {
	taskDetailsCmd.Flags().BoolVar(&taskDetailsJSON, "json", false, "emit the full progress record as JSON for audit export")
	taskCmd.AddCommand(taskDetailsCmd)
}

// taskDetailsExport is the shape `task details --json` marshals: the wire
// fields an external auditor needs, independent of the domain package's own
// (unexported-field) Task/dependency types.
type taskDetailsExport struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Description  string                  `json:"description,omitempty"`
	Status       domain.TaskStatus       `json:"status"`
	Priority     domain.Priority         `json:"priority"`
	CreatedBy    domain.BeeName          `json:"created_by"`
	Dependencies []domain.TaskDependency `json:"dependencies,omitempty"`
	Dependents   []domain.TaskDependency `json:"dependents,omitempty"`
	Assignments  []domain.Assignment     `json:"assignments,omitempty"`
	Activity     []domain.ActivityEntry  `json:"activity,omitempty"`
}

func runTaskDetails(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	progress, err := h.tasks.GetProgress(cmd.Context(), args[0])
	if err != nil {
		return exitErr(ExitError, err)
	}

	t := progress.Task
	if taskDetailsJSON {
		export := taskDetailsExport{
			ID: t.ID(), Title: t.Title(), Description: t.Description(),
			Status: t.Status(), Priority: t.Priority(), CreatedBy: t.CreatedBy(),
			Dependencies: progress.Dependencies, Dependents: progress.Dependents,
			Assignments: progress.Assignments, Activity: progress.Activity,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export); err != nil {
			return exitErr(ExitError, fmt.Errorf("encoding task details: %w", err))
		}
		return nil
	}

	fmt.Printf("%s  %s\n  status=%s priority=%s created_by=%s\n", t.ID(), t.Title(), t.Status(), t.Priority(), t.CreatedBy())
	if t.Description() != "" {
		fmt.Printf("  %s\n", t.Description())
	}
	for _, dep := range progress.Dependencies {
		fmt.Printf("  depends on %s (%s)\n", dep.DependsOnID, dep.Type)
	}
	for _, dep := range progress.Dependents {
		fmt.Printf("  blocks %s (%s)\n", dep.TaskID, dep.Type)
	}
	for _, a := range progress.Assignments {
		fmt.Printf("  assignment: %s <- %s (%s, %s)\n", a.Assignee, a.Assigner, a.Role, a.Status)
	}
	for _, e := range progress.Activity {
		fmt.Printf("  [%s] %s: %s\n", e.CreatedAt.Format("2006-01-02T15:04:05"), e.Type, e.Description)
	}
	return nil
}

// --- create ---

var (
	taskCreatePriority string
	taskCreateParent   string
	taskCreateCreator  string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title> [description]",
	Short: "Create a task",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTaskCreate,
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreatePriority, "priority", string(domain.PriorityMedium), "low|medium|high|critical")
	taskCreateCmd.Flags().StringVar(&taskCreateParent, "parent", "", "parent task id")
	taskCreateCmd.Flags().StringVar(&taskCreateCreator, "created-by", string(domain.Beekeeper), "bee recorded as creator")
	taskCmd.AddCommand(taskCreateCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	priority := domain.Priority(taskCreatePriority)
	if !priority.IsValid() {
		return exitErr(ExitError, fmt.Errorf("invalid priority %q", taskCreatePriority))
	}

	task, err := h.tasks.CreateTask(cmd.Context(), args[0], description, priority, domain.BeeName(taskCreateCreator), taskCreateParent)
	if err != nil {
		return exitErr(ExitError, err)
	}
	fmt.Println(task.ID())
	return nil
}

// --- assign ---

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <bee>",
	Short: "Assign a task to a bee",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAssign,
}

func init() {
	taskCmd.AddCommand(taskAssignCmd)
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	bee, err := beeArg(args[1])
	if err != nil {
		return exitErr(ExitError, err)
	}
	if err := h.tasks.Assign(cmd.Context(), args[0], bee, domain.Beekeeper); err != nil {
		return exitErr(ExitError, err)
	}
	fmt.Printf("assigned %s to %s\n", args[0], bee)
	return nil
}

// --- status ---

var taskStatusNote string

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <new-status>",
	Short: "Transition a task's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskStatus,
}

func init() {
	taskStatusCmd.Flags().StringVar(&taskStatusNote, "note", "", "note recorded with the transition")
	taskCmd.AddCommand(taskStatusCmd)
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	newStatus := domain.TaskStatus(args[1])
	if !newStatus.IsValid() {
		return exitErr(ExitError, fmt.Errorf("invalid status %q", args[1]))
	}
	if err := h.tasks.Transition(cmd.Context(), args[0], newStatus, domain.Beekeeper, taskStatusNote); err != nil {
		return exitErr(ExitError, err)
	}
	fmt.Printf("%s -> %s\n", args[0], newStatus)
	return nil
}

// --- message ---

var (
	taskMessageFrom string
	taskMessageType string
)

var taskMessageCmd = &cobra.Command{
	Use:   "message <task-id> <to-bee> <text>",
	Short: "Send a task-scoped message over the bus",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaskMessage,
}

func init() {
	taskMessageCmd.Flags().StringVar(&taskMessageFrom, "from", string(domain.Beekeeper), "sender bee name")
	taskMessageCmd.Flags().StringVar(&taskMessageType, "type", string(domain.MessageInfo), "message type")
	taskCmd.AddCommand(taskMessageCmd)
}

func runTaskMessage(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	to, err := beeArg(args[1])
	if err != nil {
		return exitErr(ExitError, err)
	}

	preview := bus.PreviewWire(domain.BeeName(taskMessageFrom), domain.MessageType(taskMessageType), "task message", &args[0], args[2])
	if rendered, err := renderWireMarkdown(preview); err == nil {
		fmt.Print(rendered)
	} else {
		fmt.Print(preview)
	}

	_, err = h.bus.Send(cmd.Context(), domain.BeeName(taskMessageFrom), to, domain.MessageType(taskMessageType),
		"task message", args[2], bus.SendOptions{TaskID: args[0]})
	if err != nil {
		return exitErr(ExitError, err)
	}
	fmt.Println("sent")
	return nil
}

// renderWireMarkdown styles a wire-format preview through glamour the way
// the teacher's internal/ui markdown renderer styles chat content, falling
// back to the raw markdown if the terminal renderer can't be built.
func renderWireMarkdown(markdown string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithStylePath("dark"), glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

// --- stats ---

var taskStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show active-task and agent-workload summaries",
	RunE:  runTaskStats,
}

func init() {
	taskCmd.AddCommand(taskStatsCmd)
}

func runTaskStats(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	ctx := cmd.Context()
	active, err := h.store.ActiveTasks(ctx)
	if err != nil {
		return exitErr(ExitError, err)
	}
	workload, err := h.store.AgentWorkload(ctx)
	if err != nil {
		return exitErr(ExitError, err)
	}

	byStatus := map[domain.TaskStatus]int{}
	for _, t := range active {
		byStatus[t.Status]++
	}

	statusRows := make([][]string, 0, len(byStatus))
	for status, count := range byStatus {
		statusRows = append(statusRows, []string{string(status), fmt.Sprintf("%d", count)})
	}
	fmt.Printf("active tasks: %d\n", len(active))
	fmt.Println(renderStatsTable([]string{"status", "count"}, statusRows))

	workloadRows := make([][]string, 0, len(workload))
	for _, w := range workload {
		workloadRows = append(workloadRows, []string{
			string(w.Bee), fmt.Sprintf("%d", w.ActiveTaskCount), fmt.Sprintf("%d", w.ActiveAssignmentCount),
		})
	}
	fmt.Println("agent workload:")
	fmt.Println(renderStatsTable([]string{"bee", "active tasks", "active assignments"}, workloadRows))
	return nil
}

var (
	statsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statsBorderStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// renderStatsTable lays out rows in fixed-width columns under a lipgloss
// border, the static-print counterpart of the bubbles table the --watch
// view uses for its live display.
func renderStatsTable(cols []string, rows [][]string) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	pad := func(s string, w int) string {
		if len(s) >= w {
			return s
		}
		return s + fmt.Sprintf("%*s", w-len(s), "")
	}

	var lines []string
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = pad(c, widths[i])
	}
	lines = append(lines, statsHeaderStyle.Render(joinCells(header)))
	if len(rows) == 0 {
		lines = append(lines, "(none)")
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i])
		}
		lines = append(lines, joinCells(cells))
	}
	body := lines[0]
	for _, l := range lines[1:] {
		body += "\n" + l
	}
	return statsBorderStyle.Render(body)
}

func joinCells(cells []string) string {
	out := ""
	for i, c := range cells {
		if i > 0 {
			out += "  "
		}
		out += c
	}
	return out
}
