package store

import "context"

// TableColumns lists the columns of table in declaration order.
func TableColumns(s *Store, table string) ([]string, error) {
	var cols []string
	err := queryEach(context.Background(), s.db, "SELECT name FROM pragma_table_info(?)", []any{table}, func(r rowScanner) error {
		var name string
		if err := r.Scan(&name); err != nil {
			return err
		}
		cols = append(cols, name)
		return nil
	})
	return cols, err
}
