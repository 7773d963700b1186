package sqlite

import (
	"context"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// TestAddDependency_NeverCreatesACycle is a property-based test of the
// dependency-acyclicity invariant: under any random sequence of edge
// insertions, AddDependency must accept an edge exactly when it does not
// close a cycle, and the graph it persists must stay acyclic throughout.
// Modeled on the teacher's own rapid-driven isolation property in
// internal/infrastructure/sqlite/session_repository_test.go.
func TestAddDependency_NeverCreatesACycle(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		db := setupTestDB(t)
		ctx := context.Background()

		n := rapid.IntRange(3, 8).Draw(r, "taskCount")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("rapid-task-%d", i)
			task := domain.NewTask(ids[i], ids[i], ids[i], domain.PriorityMedium, domain.Queen)
			if err := db.CreateTask(ctx, task); err != nil {
				r.Fatalf("seeding task %s: %v", ids[i], err)
			}
		}

		edges := map[[2]string]bool{}
		steps := rapid.IntRange(1, 20).Draw(r, "stepCount")
		for i := 0; i < steps; i++ {
			from := ids[rapid.IntRange(0, n-1).Draw(r, "from")]
			to := ids[rapid.IntRange(0, n-1).Draw(r, "to")]

			wouldCycle := from == to || reachesNode(edges, to, from)
			err := db.AddDependency(ctx, domain.TaskDependency{
				TaskID: from, DependsOnID: to, Type: domain.DependencyBlocks,
			})

			switch {
			case wouldCycle && err == nil:
				r.Fatalf("expected cycle rejection for %s -> %s, got no error", from, to)
			case !wouldCycle && err != nil:
				r.Fatalf("unexpected error adding acyclic edge %s -> %s: %v", from, to, err)
			case !wouldCycle:
				edges[[2]string{from, to}] = true
			}
		}

		for _, id := range ids {
			deps, err := db.ListDependencies(ctx, id)
			if err != nil {
				r.Fatalf("listing dependencies for %s: %v", id, err)
			}
			for _, d := range deps {
				if reachesNode(edges, d.DependsOnID, id) {
					r.Fatalf("persisted graph contains a cycle through %s -> %s", id, d.DependsOnID)
				}
			}
		}
	})
}

// reachesNode is the reference cycle check the Store's own DFS (see
// wouldCreateCycle in dependencies.go) is verified against: can `from`
// reach `target` by following recorded edges.
func reachesNode(edges map[[2]string]bool, from, target string) bool {
	visited := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		if cur == target {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for e := range edges {
			if e[0] == cur {
				stack = append(stack, e[1])
			}
		}
	}
	return false
}
