package feed

import "agora/internal/models"

// Row is one comment of a flattened thread.
type Row struct {
	Comment *models.Comment
	Depth   int
	// Path holds the ids from the top-level ancestor down to Comment.
	Path []int64
}

// Flatten lists a comment forest in display order: each comment followed by
// its replies, depth-first, with Depth counted from zero at the top level.
// Rows point into comments, so edits through them update the tree.
func Flatten(comments []models.Comment) []Row {
	var rows []Row
	var walk func(list []models.Comment, parent []int64)
	walk = func(list []models.Comment, parent []int64) {
		for i := range list {
			c := &list[i]
			path := make([]int64, len(parent)+1)
			copy(path, parent)
			path[len(parent)] = c.ID
			rows = append(rows, Row{Comment: c, Depth: len(parent), Path: path})
			walk(c.Replies, path)
		}
	}
	walk(comments, nil)
	return rows
}

// CountReplies returns the number of nodes in the forest, at every depth.
func CountReplies(comments []models.Comment) int {
	n := 0
	for _, c := range comments {
		n += 1 + CountReplies(c.Replies)
	}
	return n
}

// FindComment returns the comment with id anywhere in the forest, or nil.
func FindComment(comments []models.Comment, id int64) *models.Comment {
	for i := range comments {
		if comments[i].ID == id {
			return &comments[i]
		}
		if c := FindComment(comments[i].Replies, id); c != nil {
			return c
		}
	}
	return nil
}
