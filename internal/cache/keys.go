package cache

const studentResultsPrefix = "student_results:"

// StudentResultsKey holds the approved results of one student. Approval is
// one-way, so an entry can at worst miss a fresh approval, never show a
// pending or rejected result.
func StudentResultsKey(matNo string) string {
	return studentResultsPrefix + matNo
}
