package service

import "exam_portal_backend/internal/model"

// Score 一次作答的判分结果
type Score struct {
	Obtained   float64
	Raw        float64
	Correct    int
	Wrong      int
	Unanswered []uint
	Status     model.ResultStatus
}

// ComputeScore 纯函数：答对加分，答错扣负分，未作答不计分，总分不低于 0。
// 不属于本场考试的题目被忽略；同一题重复作答只取第一条
func ComputeScore(questions []model.Question, responses []model.Response, passingMarks int) Score {
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	var score Score
	answered := make(map[uint]bool, len(responses))
	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok || answered[r.QuestionID] {
			continue
		}
		answered[r.QuestionID] = true

		if q.CorrectOptionID != nil && r.OptionID == *q.CorrectOptionID {
			score.Raw += float64(q.Marks)
			score.Correct++
		} else {
			if q.NegativeMarks > 0 {
				score.Raw -= q.NegativeMarks
			}
			score.Wrong++
		}
	}

	score.Unanswered = UnansweredQuestions(questions, responses)

	score.Obtained = score.Raw
	if score.Obtained < 0 {
		score.Obtained = 0
	}
	if score.Obtained >= float64(passingMarks) {
		score.Status = model.ResultPass
	} else {
		score.Status = model.ResultFail
	}
	return score
}

// UnansweredQuestions 按题目顺序返回没有作答的题目 ID
func UnansweredQuestions(questions []model.Question, responses []model.Response) []uint {
	answered := make(map[uint]bool, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = true
	}
	unanswered := make([]uint, 0)
	for _, q := range questions {
		if !answered[q.ID] {
			unanswered = append(unanswered, q.ID)
		}
	}
	return unanswered
}
