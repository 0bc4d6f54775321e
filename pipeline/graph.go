package pipeline

// ValidateGraph checks that the manifest's stages form a well-defined DAG
// before anything executes:
//
//   - stage IDs are present and unique
//   - every `needs` entry references an existing, different stage
//   - no output artifact is declared by two stages
//   - the dependency graph is acyclic (Kahn's algorithm)
//   - every dependency precedes its dependents in the manifest order,
//     so the manifest order is the execution order
func ValidateGraph(m *Manifest) error {
	if len(m.Stages) == 0 {
		return graphErrorf(ErrEmptyStages, "", "pipeline has no stages")
	}

	index := make(map[string]int, len(m.Stages))
	for i, s := range m.Stages {
		if s.ID == "" {
			return graphErrorf(ErrEmptyStageID, "", "stage %d has empty id", i)
		}
		if _, exists := index[s.ID]; exists {
			return graphErrorf(ErrDuplicateStageID, s.ID, "duplicate stage id '%s'", s.ID)
		}
		index[s.ID] = i
	}

	for _, s := range m.Stages {
		for _, dep := range s.Needs {
			if dep == s.ID {
				return graphErrorf(ErrSelfDependency, s.ID, "stage '%s' needs itself", s.ID)
			}
			if _, exists := index[dep]; !exists {
				return graphErrorf(ErrUnknownDependency, s.ID, "stage '%s' needs unknown stage '%s'", s.ID, dep)
			}
		}
	}

	outputOwner := make(map[string]string)
	for _, s := range m.Stages {
		for _, out := range s.Outputs {
			path := s.ResolvePath(out)
			if owner, exists := outputOwner[path]; exists {
				return graphErrorf(ErrDuplicateOutput, s.ID,
					"output '%s' already declared by stage '%s'", out, owner)
			}
			outputOwner[path] = s.ID
		}
	}

	if err := validateAcyclic(m, index); err != nil {
		return err
	}

	// Order check runs after cycle detection so a cycle is reported as a
	// cycle, not as a misordered list.
	for i, s := range m.Stages {
		for _, dep := range s.Needs {
			if index[dep] > i {
				return graphErrorf(ErrOrderViolation, s.ID,
					"stage '%s' is listed before its dependency '%s'", s.ID, dep)
			}
		}
	}

	return nil
}

// validateAcyclic runs Kahn's algorithm over the stage graph. If not every
// stage can be ordered, some subset forms a cycle.
func validateAcyclic(m *Manifest, index map[string]int) error {
	n := len(m.Stages)
	indeg := make([]int, n)
	dependents := make([][]int, n)

	for i, s := range m.Stages {
		for _, dep := range s.Needs {
			d := index[dep]
			dependents[d] = append(dependents[d], i)
			indeg[i]++
		}
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		visited++
		for _, v := range dependents[u] {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if visited != n {
		// Name one stage stuck in the cycle for the error message.
		for i := 0; i < n; i++ {
			if indeg[i] > 0 {
				return graphErrorf(ErrCyclicDependency, m.Stages[i].ID,
					"stage '%s' is part of a dependency cycle", m.Stages[i].ID)
			}
		}
		return graphErrorf(ErrCyclicDependency, "", "dependency cycle detected")
	}

	return nil
}
