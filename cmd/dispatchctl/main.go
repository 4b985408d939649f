package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/fieldops/dispatch/internal/client"
	"github.com/fieldops/dispatch/internal/query"
	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
)

var (
	app     = kingpin.New("dispatchctl", "Command line client for the dispatch server")
	baseURL = app.Flag("server", "Server base URL").Default("http://localhost:3200").Envar("DISPATCH_SERVER").String()
	apiKey  = app.Flag("api-key", "API key").Envar("DISPATCH_API_KEY").String()

	// Task commands
	taskCmd = app.Command("task", "Task management commands")

	taskCreateCmd      = taskCmd.Command("create", "Create a new task")
	taskCreateTitle    = taskCreateCmd.Arg("title", "Task title").Required().String()
	taskCreateType     = taskCreateCmd.Flag("type", "Task type").Default("general").String()
	taskCreateSubtype  = taskCreateCmd.Flag("subtype", "Task subtype").String()
	taskCreatePriority = taskCreateCmd.Flag("priority", "Task priority").Default("MEDIUM").Enum("LOW", "MEDIUM", "HIGH")
	taskCreateSkills   = taskCreateCmd.Flag("skill", "Required skill (repeatable)").Strings()
	taskCreateStart    = taskCreateCmd.Flag("start", "Start date (RFC3339)").String()
	taskCreateEnd      = taskCreateCmd.Flag("end", "End date (RFC3339)").String()
	taskCreateArea     = taskCreateCmd.Flag("area", "Area ID").String()
	taskCreateAsset    = taskCreateCmd.Flag("asset", "Asset ID").String()
	taskCreateDesc     = taskCreateCmd.Flag("description", "Task description").String()

	taskListCmd      = taskCmd.Command("list", "List tasks")
	taskListStatus   = taskListCmd.Flag("status", "Filter by status").String()
	taskListPriority = taskListCmd.Flag("priority", "Filter by priority").String()
	taskListWorker   = taskListCmd.Flag("worker", "Filter by assigned worker").String()
	taskListArea     = taskListCmd.Flag("area", "Filter by area").String()
	taskListLimit    = taskListCmd.Flag("limit", "Page size").Default("50").Int()
	taskListOffset   = taskListCmd.Flag("offset", "Page offset").Default("0").Int()

	taskShowCmd = taskCmd.Command("show", "Show task details")
	taskShowID  = taskShowCmd.Arg("id", "Task ID").Required().String()

	taskAssignCmd = taskCmd.Command("assign", "Assign a pending task to the most suitable worker")
	taskAssignID  = taskAssignCmd.Arg("id", "Task ID").Required().String()

	taskReassignCmd    = taskCmd.Command("reassign", "Reassign a task to a specific worker")
	taskReassignID     = taskReassignCmd.Arg("id", "Task ID").Required().String()
	taskReassignWorker = taskReassignCmd.Arg("worker", "Worker ID").Required().String()

	taskProgressCmd   = taskCmd.Command("progress", "Update task progress")
	taskProgressID    = taskProgressCmd.Arg("id", "Task ID").Required().String()
	taskProgressValue = taskProgressCmd.Arg("progress", "Progress percent (0-100)").Required().Int()

	taskCompleteCmd = taskCmd.Command("complete", "Mark a task completed")
	taskCompleteID  = taskCompleteCmd.Arg("id", "Task ID").Required().String()

	taskCancelCmd = taskCmd.Command("cancel", "Cancel a task")
	taskCancelID  = taskCancelCmd.Arg("id", "Task ID").Required().String()

	// Worker commands
	workerCmd = app.Command("worker", "Worker management commands")

	workerListCmd          = workerCmd.Command("list", "List workers")
	workerListSkill        = workerListCmd.Flag("skill", "Filter by skill").String()
	workerListAvailability = workerListCmd.Flag("availability", "Filter by availability").String()

	workerCreateCmd        = workerCmd.Command("create", "Create a new worker")
	workerCreateName       = workerCreateCmd.Arg("name", "Worker name").Required().String()
	workerCreateSkills     = workerCreateCmd.Flag("skill", "Expertise (repeatable)").Strings()
	workerCreateExperience = workerCreateCmd.Flag("experience", "Years of experience").Default("0").Float64()

	workerShowCmd = workerCmd.Command("show", "Show worker details")
	workerShowID  = workerShowCmd.Arg("id", "Worker ID").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(strings.TrimRight(*baseURL, "/"), *apiKey)

	var err error
	switch command {
	case taskCreateCmd.FullCommand():
		err = runTaskCreate(ctx, c)
	case taskListCmd.FullCommand():
		err = runTaskList(ctx, c)
	case taskShowCmd.FullCommand():
		err = runTaskShow(ctx, c)
	case taskAssignCmd.FullCommand():
		err = runTaskAssign(ctx, c)
	case taskReassignCmd.FullCommand():
		err = runTaskReassign(ctx, c)
	case taskProgressCmd.FullCommand():
		err = runTaskProgress(ctx, c)
	case taskCompleteCmd.FullCommand():
		err = runTaskComplete(ctx, c)
	case taskCancelCmd.FullCommand():
		err = runTaskCancel(ctx, c)
	case workerListCmd.FullCommand():
		err = runWorkerList(ctx, c)
	case workerCreateCmd.FullCommand():
		err = runWorkerCreate(ctx, c)
	case workerShowCmd.FullCommand():
		err = runWorkerShow(ctx, c)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTaskCreate(ctx context.Context, c *client.Client) error {
	req := &task.CreateTaskRequest{
		Title:          *taskCreateTitle,
		Description:    *taskCreateDesc,
		Type:           *taskCreateType,
		Subtype:        *taskCreateSubtype,
		Priority:       task.Priority(*taskCreatePriority),
		RequiredSkills: *taskCreateSkills,
		AreaID:         *taskCreateArea,
		AssetID:        *taskCreateAsset,
	}
	var err error
	if req.StartDate, req.EndDate, err = parseWindow(*taskCreateStart, *taskCreateEnd); err != nil {
		return err
	}
	created, err := c.CreateTask(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s\n", color.CyanString(created.ID))
	return nil
}

// parseWindow defaults to a one-week window starting now so quick
// command line experiments don't need explicit dates.
func parseWindow(start, end string) (time.Time, time.Time, error) {
	from := time.Now().UTC()
	to := from.Add(7 * 24 * time.Hour)
	var err error
	if start != "" {
		if from, err = time.Parse(time.RFC3339, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if end != "" {
		if to, err = time.Parse(time.RFC3339, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return from, to, nil
}

func runTaskList(ctx context.Context, c *client.Client) error {
	tasks, page, err := c.ListTasks(ctx, client.TaskListOptions{
		Status:     *taskListStatus,
		Priority:   *taskListPriority,
		AssignedTo: *taskListWorker,
		AreaID:     *taskListArea,
		Limit:      *taskListLimit,
		Offset:     *taskListOffset,
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tPROGRESS\tASSIGNED TO")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			t.ID, t.Title, statusColor(t.Status), t.Priority, t.Progress, assignee(t))
	}
	w.Flush()
	fmt.Printf("\n%d of %d tasks\n", len(tasks), page.Total)
	return nil
}

func assignee(t *query.TaskView) string {
	if t.AssignedTo == "" {
		return "-"
	}
	if t.AssignedToName != "" {
		return fmt.Sprintf("%s (%s)", t.AssignedToName, t.AssignedTo)
	}
	return t.AssignedTo
}

func statusColor(s task.Status) string {
	switch s {
	case task.StatusPending:
		return color.YellowString(string(s))
	case task.StatusInProgress:
		return color.BlueString(string(s))
	case task.StatusCompleted:
		return color.GreenString(string(s))
	case task.StatusCancelled:
		return color.RedString(string(s))
	}
	return string(s)
}

func runTaskShow(ctx context.Context, c *client.Client) error {
	t, err := c.GetTask(ctx, *taskShowID)
	if err != nil {
		return err
	}
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	fmt.Printf("Type:        %s\n", t.Type)
	if t.Subtype != "" {
		fmt.Printf("Subtype:     %s\n", t.Subtype)
	}
	fmt.Printf("Status:      %s\n", statusColor(t.Status))
	fmt.Printf("Priority:    %s\n", t.Priority)
	fmt.Printf("Progress:    %d%%\n", t.Progress)
	if len(t.RequiredSkills) > 0 {
		fmt.Printf("Skills:      %s\n", strings.Join(t.RequiredSkills, ", "))
	}
	fmt.Printf("Window:      %s .. %s\n", t.StartDate.Format(time.RFC3339), t.EndDate.Format(time.RFC3339))
	if t.AssignedTo != "" {
		fmt.Printf("Assigned to: %s\n", assignee(t))
	}
	if t.AreaID != "" {
		fmt.Printf("Area:        %s (%s)\n", t.AreaName, t.AreaID)
	}
	if t.AssetID != "" {
		fmt.Printf("Asset:       %s (%s)\n", t.AssetName, t.AssetID)
	}
	return nil
}

func runTaskAssign(ctx context.Context, c *client.Client) error {
	t, err := c.AssignTask(ctx, *taskAssignID)
	if err != nil {
		return err
	}
	fmt.Printf("Assigned task %s to worker %s\n", color.CyanString(t.ID), color.CyanString(t.AssignedTo))
	return nil
}

func runTaskReassign(ctx context.Context, c *client.Client) error {
	t, err := c.ReassignTask(ctx, *taskReassignID, *taskReassignWorker)
	if err != nil {
		return err
	}
	fmt.Printf("Reassigned task %s to worker %s\n", color.CyanString(t.ID), color.CyanString(t.AssignedTo))
	return nil
}

func runTaskProgress(ctx context.Context, c *client.Client) error {
	t, err := c.UpdateTask(ctx, *taskProgressID, &task.UpdateTaskRequest{Progress: taskProgressValue})
	if err != nil {
		return err
	}
	fmt.Printf("Task %s progress is now %d%%\n", color.CyanString(t.ID), t.Progress)
	return nil
}

func runTaskComplete(ctx context.Context, c *client.Client) error {
	status := task.StatusCompleted
	progress := 100
	t, err := c.UpdateTask(ctx, *taskCompleteID, &task.UpdateTaskRequest{Status: &status, Progress: &progress})
	if err != nil {
		return err
	}
	fmt.Printf("Task %s is %s\n", color.CyanString(t.ID), statusColor(t.Status))
	return nil
}

func runTaskCancel(ctx context.Context, c *client.Client) error {
	status := task.StatusCancelled
	t, err := c.UpdateTask(ctx, *taskCancelID, &task.UpdateTaskRequest{Status: &status})
	if err != nil {
		return err
	}
	fmt.Printf("Task %s is %s\n", color.CyanString(t.ID), statusColor(t.Status))
	return nil
}

func runWorkerList(ctx context.Context, c *client.Client) error {
	workers, page, err := c.ListWorkers(ctx, client.WorkerListOptions{
		Skill:        *workerListSkill,
		Availability: *workerListAvailability,
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAVAILABILITY\tLOAD\tEXPERIENCE\tSKILLS")
	for _, wk := range workers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1fy\t%s\n",
			wk.ID, wk.Name, wk.Availability.Status, wk.Load,
			wk.ExperienceYears, strings.Join(wk.Expertise, ", "))
	}
	w.Flush()
	fmt.Printf("\n%d of %d workers\n", len(workers), page.Total)
	return nil
}

func runWorkerCreate(ctx context.Context, c *client.Client) error {
	created, err := c.CreateWorker(ctx, &worker.CreateWorkerRequest{
		Name:            *workerCreateName,
		Expertise:       *workerCreateSkills,
		ExperienceYears: *workerCreateExperience,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created worker %s\n", color.CyanString(created.ID))
	return nil
}

func runWorkerShow(ctx context.Context, c *client.Client) error {
	wk, err := c.GetWorker(ctx, *workerShowID)
	if err != nil {
		return err
	}
	fmt.Printf("ID:           %s\n", wk.ID)
	fmt.Printf("Name:         %s\n", wk.Name)
	fmt.Printf("Availability: %s\n", wk.Availability.Status)
	fmt.Printf("Load:         %d\n", wk.Load)
	fmt.Printf("Experience:   %.1f years\n", wk.ExperienceYears)
	if len(wk.Expertise) > 0 {
		fmt.Printf("Skills:       %s\n", strings.Join(wk.Expertise, ", "))
	}
	if len(wk.CurrentTasks) > 0 {
		fmt.Printf("Tasks:        %s\n", strings.Join(wk.CurrentTasks, ", "))
	}
	return nil
}
