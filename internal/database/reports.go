package database

// SaveWeeklyReport persists a weekly report payload for a week.
// Scope is nil for the global report.
func (db *DB) SaveWeeklyReport(scope *string, weekStart, weekEnd string, reportData []byte) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO weekly_reports (scope, week_start, week_end, report_data)
		VALUES (?, ?, ?, ?)`,
		scope, weekStart, weekEnd, reportData,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetWeeklyReports returns up to limit persisted weekly reports for a
// scope, newest week first. A nil scope selects global reports only.
func (db *DB) GetWeeklyReports(scope *string, limit int) ([]WeeklyReportRow, error) {
	query := `SELECT id, scope, week_start, week_end, report_data, created_at
		FROM weekly_reports WHERE `
	var args []any
	if scope == nil {
		query += "scope IS NULL"
	} else {
		query += "scope = ?"
		args = append(args, *scope)
	}
	query += " ORDER BY week_start DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []WeeklyReportRow
	for rows.Next() {
		var r WeeklyReportRow
		if err := rows.Scan(&r.ID, &r.Scope, &r.WeekStart, &r.WeekEnd,
			&r.ReportData, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
