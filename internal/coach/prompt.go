package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/synthesis"
	"github.com/futureyou/futureyou-os/internal/voice"
)

const goldExamples = 2

var phaseVoices = map[domain.Phase]string{
	domain.PhaseObserver: `OBSERVER PHASE (days 1-14)
This person is new. Build trust through accurate observation.
Ask to understand, not to challenge. Reflect back what you see without heavy interpretation.
Celebrate small wins. Voice: curious and steady.
"I noticed you finished three habits yesterday. What made that day work?"`,
	domain.PhaseArchitect: `ARCHITECT PHASE (days 14-60)
They have shown commitment. Name patterns and point at gaps between what they say and what they do.
Challenge excuses with evidence and push for consistency. Voice: direct and structured.
"You missed the evening habit four of the last seven days, all after 8pm. What happens then?"`,
	domain.PhaseOracle: `ORACLE PHASE (day 60 on)
They have sustained the work. Ask identity questions and use their own words.
Speak to who they are becoming, not only what they are doing. Voice: calm, knowing, concrete.
"Months ago you said discipline was about proving something to yourself. Have you proved it yet?"`,
}

var focusGuidance = map[domain.QuestionFocus]string{
	domain.FocusExtractFear: `QUESTION FOCUS: extract fear
Ask what they are afraid of or avoiding.
Example: "What are you most afraid happens if you don't show up today?"`,
	domain.FocusConfrontPattern: `QUESTION FOCUS: confront pattern
Name the contradiction and ask them to explain it.
Example: "You say this matters, but you've missed it five of seven days. What's really going on?"`,
	domain.FocusClarifyIntention: `QUESTION FOCUS: clarify intention
Help them get specific about what they want and why.
Example: "What would finishing today's habits prove to you?"`,
	domain.FocusProbeExcuse: `QUESTION FOCUS: probe excuse
They lean on the same excuses. Dig into them.
Example: "You've said 'I didn't have time' four times this week. What did you have time for instead?"`,
	domain.FocusCelebrateProgress: `QUESTION FOCUS: celebrate, then push
Acknowledge the progress, then ask what comes next.
Example: "Fourteen days straight. What does the next level look like?"`,
}

var focusProbes = map[domain.QuestionFocus]voice.ProbeType{
	domain.FocusExtractFear:       voice.ProbeFear,
	domain.FocusConfrontPattern:   voice.ProbePattern,
	domain.FocusClarifyIntention:  voice.ProbeIdentity,
	domain.FocusProbeExcuse:       voice.ProbeExcuse,
	domain.FocusCelebrateProgress: voice.ProbeWin,
}

// SystemPrompt assembles the fixed part of every generation: identity,
// authority, phase, state tone, calibration, epistemic limits, banned list
// and gold-standard examples.
func SystemPrompt(b *synthesis.Base, t domain.MessageType) string {
	v := b.Voice
	var s strings.Builder

	s.WriteString(voice.Constitution)
	section(&s)
	fmt.Fprintf(&s, "CURRENT AUTHORITY LEVEL: %s\n%s", strings.ToUpper(string(v.Authority)), voice.AuthorityGuide(v.Authority))
	section(&s)
	fmt.Fprintf(&s, "CURRENT PHASE: %s\n%s", strings.ToUpper(string(b.Phase)), phaseVoice(b.Phase))
	section(&s)
	s.WriteString(voice.StateGuide(b.State()))
	section(&s)

	s.WriteString("VOICE CALIBRATION:\n")
	fmt.Fprintf(&s, "- Data quality: %s\n", v.DataQuality)
	fmt.Fprintf(&s, "- Max intensity allowed: %d/10\n", v.MaxIntensity)
	fmt.Fprintf(&s, "- Current intensity: %d/10\n", v.CurrentIntensity)
	fmt.Fprintf(&s, "- Approach: %s\n", v.Approach)
	fmt.Fprintf(&s, "- Requires soft landing: %t\n", v.RequiresSoftLanding)
	if len(v.AvoidPhrases) > 0 {
		fmt.Fprintf(&s, "AVOID: %s\n", quoteAll(v.AvoidPhrases))
	}
	if len(v.PreferPhrases) > 0 {
		fmt.Fprintf(&s, "PREFER: %s\n", quoteAll(v.PreferPhrases))
	}
	if v.PhaseTone != "" {
		fmt.Fprintf(&s, "PHASE TONE: %s\n", v.PhaseTone)
	}
	section(&s)

	s.WriteString(b.Epistemic.PromptSection())
	section(&s)

	s.WriteString("NEVER USE THESE PHRASES:\n")
	s.WriteString(quoteAll(voice.BannedPhrases()))

	examples := voice.Examples(b.State(), t, v.Authority)
	if len(examples) > goldExamples {
		examples = examples[:goldExamples]
	}
	if len(examples) > 0 {
		section(&s)
		s.WriteString("GOLD STANDARD (match the voice, never copy the content):\n")
		for _, ex := range examples {
			fmt.Fprintf(&s, "\n%s\n", voice.Clean(ex, b.UserName))
		}
	}
	return strings.TrimRight(s.String(), "\n")
}

func section(s *strings.Builder) {
	s.WriteString("\n\n---\n")
}

func phaseVoice(p domain.Phase) string {
	if v, ok := phaseVoices[p]; ok {
		return v
	}
	return phaseVoices[domain.PhaseObserver]
}

func quoteAll(items []string) string {
	q := make([]string, len(items))
	for i, it := range items {
		q[i] = fmt.Sprintf("%q", it)
	}
	return strings.Join(q, ", ")
}

// DataContext is the user summary shared by brief, debrief and chat prompts.
func DataContext(b *synthesis.Base) string {
	var s strings.Builder
	s.WriteString("USER CONTEXT:\n")
	fmt.Fprintf(&s, "Name: %s\n", b.UserName)
	fmt.Fprintf(&s, "Phase: %s (day %d)\n", b.Phase, b.DaysInPhase)
	fmt.Fprintf(&s, "Days in system: %d\n", b.DaysInSystem)
	fmt.Fprintf(&s, "Execution state: %s (score %d)\n", b.State(), b.Execution.Score)
	for _, ev := range b.Execution.Evidence() {
		fmt.Fprintf(&s, "  because: %s\n", ev)
	}
	fmt.Fprintf(&s, "Risk level: %s\n", b.CurrentRisk.Level)
	if b.Purpose != "" {
		fmt.Fprintf(&s, "Purpose: %q\n", b.Purpose)
	} else {
		s.WriteString("Purpose: not yet discovered\n")
	}
	if len(b.Values) > 0 {
		fmt.Fprintf(&s, "Values: %s\n", strings.Join(b.Values, ", "))
	}

	r := b.Recent
	today := r.Today
	s.WriteString("\nRECENT PERFORMANCE:\n")
	fmt.Fprintf(&s, "- Today: %d/%d completed\n", today.CompletedCount, today.CompletedCount+today.MissedCount+today.PendingCount)
	fmt.Fprintf(&s, "- This week: %d%% (%s)\n", r.Week.Rate, r.Week.Trend)
	fmt.Fprintf(&s, "- Last engagement: %s\n", r.LastEngagement)
	if len(r.ActiveStreaks) > 0 {
		parts := make([]string, len(r.ActiveStreaks))
		for i, st := range r.ActiveStreaks {
			parts[i] = fmt.Sprintf("%s (%dd)", st.HabitTitle, st.Days)
		}
		fmt.Fprintf(&s, "- Active streaks: %s\n", strings.Join(parts, ", "))
	} else {
		s.WriteString("- No active streaks\n")
	}

	if w := b.ActiveTriggerWarning; w != nil {
		fmt.Fprintf(&s, "\nACTIVE WARNING: %s pattern detected (stage %d/%d)\n", w.ChainName, w.CurrentStage, w.TotalStages)
	}
	if len(b.PastReflections) > 0 {
		s.WriteString("\nTHEIR OWN WORDS (recent reflections):\n")
		for i, r := range b.PastReflections {
			if i == 3 {
				break
			}
			fmt.Fprintf(&s, "- %s: %q\n", r.DayKey, r.Text)
		}
	}
	return strings.TrimRight(s.String(), "\n")
}

func knowledgeBlock(b *synthesis.Base, truths, hypotheses int) string {
	var s strings.Builder
	if len(b.EarnedTruths) > 0 {
		s.WriteString("EARNED TRUTHS (use these):\n")
		for i, t := range b.EarnedTruths {
			if i == truths {
				break
			}
			fmt.Fprintf(&s, "- %s\n", t.Statement)
		}
	}
	var probe []string
	for _, h := range b.Hypotheses {
		if h.ShouldProbe && len(probe) < hypotheses {
			probe = append(probe, h.Statement)
		}
	}
	if len(probe) > 0 {
		s.WriteString("HYPOTHESES (ask, never assert):\n")
		for _, h := range probe {
			fmt.Fprintf(&s, "- %s\n", h)
		}
	}
	if len(b.Unknowns) > 0 {
		fmt.Fprintf(&s, "STILL UNKNOWN: %s\n", strings.Join(b.Unknowns, "; "))
	}
	return strings.TrimRight(s.String(), "\n")
}

// QuestionGuidance describes the question focus and lists filled templates
// that fit the user's state.
func QuestionGuidance(b *synthesis.Base, focus domain.QuestionFocus) string {
	g, ok := focusGuidance[focus]
	if !ok {
		g = focusGuidance[domain.FocusClarifyIntention]
	}
	var ideas []string
	for _, q := range voice.QuestionTemplates(b.State(), focusProbes[focus]) {
		filled := voice.FillTemplate(q.Template, templateData(b))
		if !strings.Contains(filled, "[") {
			ideas = append(ideas, filled)
		}
	}
	if len(ideas) == 0 {
		return g
	}
	return g + "\nQuestion ideas:\n- " + strings.Join(ideas, "\n- ")
}

func templateData(b *synthesis.Base) voice.TemplateData {
	d := voice.TemplateData{
		Name: b.UserName,
		Day:  b.Now.Weekday().String(),
		Time: b.Now.Format("15:04"),
		Days: b.DaysInSystem,
	}
	for _, st := range b.Recent.ActiveStreaks {
		d.Habit = st.HabitTitle
		d.Count = st.Days
		break
	}
	if d.Habit == "" {
		for _, h := range b.Recent.Today.Habits {
			d.Habit = h.Title
			break
		}
	}
	if top := topExcuse(b.Excuses); top != nil {
		d.Excuse = top.Phrase
		d.Count = top.Frequency
	}
	return d
}

func topExcuse(excuses []domain.RecurringExcuse) *domain.RecurringExcuse {
	var top *domain.RecurringExcuse
	for i := range excuses {
		if top == nil || excuses[i].Frequency > top.Frequency {
			top = &excuses[i]
		}
	}
	return top
}

func retryBlock(feedback string) string {
	if feedback == "" {
		return ""
	}
	return "\n\n---\nYOUR LAST DRAFT WAS REJECTED.\n" + feedback + "\nWrite a new message that fixes every violation."
}

func joinOr(items []string, none string) string {
	if len(items) == 0 {
		return none
	}
	return strings.Join(items, ", ")
}

// BriefPrompt renders the morning brief request.
func BriefPrompt(b *synthesis.Brief, feedback string) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Write a morning brief for %s.\n\n", b.UserName)
	s.WriteString(DataContext(b.Base))

	y := b.Yesterday
	s.WriteString("\n\nYESTERDAY:\n")
	fmt.Fprintf(&s, "- Completed: %d\n- Missed: %d\n- Rate: %d%%\n", y.Completed, y.Missed, y.Rate)
	if y.Highlight != "" {
		fmt.Fprintf(&s, "- Highlight: %s\n", y.Highlight)
	}

	f := b.TodayFocus
	s.WriteString("\nTODAY'S FOCUS:\n")
	fmt.Fprintf(&s, "- Priority habits: %s\n", joinOr(f.PriorityHabits, "none identified"))
	fmt.Fprintf(&s, "- Drift windows to watch: %s\n", joinOr(f.DriftWindowsToday, "none identified"))
	fmt.Fprintf(&s, "- Streaks to protect: %s\n", joinOr(f.StreaksToProtect, "none"))

	if len(b.PendingCommitments) > 0 {
		s.WriteString("\nPENDING COMMITMENTS:\n")
		for _, c := range b.PendingCommitments {
			fmt.Fprintf(&s, "- %q (made %s)\n", c.Text, TimeAgo(c.MadeAt, b.Now))
		}
	}
	if k := knowledgeBlock(b.Base, 3, 2); k != "" {
		s.WriteString("\n" + k + "\n")
	}

	s.WriteString("\n---\nFORMAT:\n2-3 short paragraphs. Open with their name. End with two or three specific questions.\n\n")
	s.WriteString(QuestionGuidance(b.Base, b.QuestionFocus))
	s.WriteString("\n\n---\nCHECK BEFORE SENDING:\n- At least two specific data points\n- No cliche encouragement\n- Would this message fit anyone else? It must not.")
	s.WriteString(retryBlock(feedback))
	return s.String()
}

// NudgePrompt renders the nudge request.
func NudgePrompt(n *synthesis.Nudge, feedback string) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Write a nudge for %s.\n\n", n.UserName)
	fmt.Fprintf(&s, "TRIGGER: %s\nREASON: %s\nSEVERITY: %d/5\nURGENCY: %s\n", n.Trigger.Type, n.Trigger.Reason, n.Trigger.Severity, n.Urgency)
	if n.Trigger.HabitContext != "" {
		fmt.Fprintf(&s, "HABIT: %s\n", n.Trigger.HabitContext)
	}
	if n.AtStake != "" {
		fmt.Fprintf(&s, "AT STAKE: %s\n", n.AtStake)
	}
	if n.RelevantPattern != "" {
		fmt.Fprintf(&s, "RELEVANT PATTERN: %s\n", n.RelevantPattern)
	}
	fmt.Fprintf(&s, "RECOMMENDED ACTION: %s\n", n.RecommendedAction)

	s.WriteString("\nCURRENT STATE:\n")
	fmt.Fprintf(&s, "- Execution: %s\n- Risk level: %s\n- Days since last action: %d\n",
		n.State(), n.CurrentRisk.Level, n.Recent.DaysSinceLastAction)
	if len(n.Excuses) > 0 {
		s.WriteString("\nWATCH FOR EXCUSES:\n")
		for i, e := range n.Excuses {
			if i == 2 {
				break
			}
			fmt.Fprintf(&s, "- %q\n", e.Phrase)
		}
	}
	if len(n.TimeWasters) > 0 {
		fmt.Fprintf(&s, "\nKNOWN TIME WASTERS: %s\n", strings.Join(n.TimeWasters, ", "))
	}

	s.WriteString("\n---\nFORMAT:\n2-4 sentences. Open by addressing them directly. One clear action or one pointed question. No fluff.\n\n")
	s.WriteString(QuestionGuidance(n.Base, n.QuestionFocus))
	fmt.Fprintf(&s, "\n\nINTENSITY: %d/10", n.Voice.CurrentIntensity)
	if n.Voice.RequiresSoftLanding {
		s.WriteString("\nThey need a soft landing. Do not pile on.")
	}
	s.WriteString(retryBlock(feedback))
	return s.String()
}

// DebriefPrompt renders the evening debrief request.
func DebriefPrompt(d *synthesis.Debrief, feedback string) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Write an evening debrief for %s.\n\n", d.UserName)
	s.WriteString(DataContext(d.Base))

	a := d.TodayActual
	s.WriteString("\n\nTODAY:\n")
	fmt.Fprintf(&s, "- Completed: %s\n", joinOr(habitTitles(a.Completed), "none"))
	fmt.Fprintf(&s, "- Missed: %s\n", joinOr(habitTitles(a.Missed), "none"))
	fmt.Fprintf(&s, "- Completion rate: %d%%\n", a.CompletionRate)
	if a.BestMoment != "" {
		fmt.Fprintf(&s, "- Best moment: %s\n", a.BestMoment)
	}
	if a.HardestMoment != "" {
		fmt.Fprintf(&s, "- Hardest moment: %s\n", a.HardestMoment)
	}

	s.WriteString("\nINTENTION VS REALITY:\n")
	if d.IntentionVsReality.Aligned {
		s.WriteString("- Roughly what they intended\n")
	} else {
		fmt.Fprintf(&s, "- Gap: %s\n", d.IntentionVsReality.Gap)
	}

	s.WriteString("\nDRIFT:\n")
	if d.Drift.DriftedAt == "" {
		s.WriteString("- No major drift today\n")
	} else {
		fmt.Fprintf(&s, "- Drifted at: %s\n", d.Drift.DriftedAt)
		if d.Drift.DriftCause != "" {
			fmt.Fprintf(&s, "- Possible cause: %s\n", d.Drift.DriftCause)
		}
		if d.Drift.RecoveredAt != "" {
			fmt.Fprintf(&s, "- Recovered at: %s\n", d.Drift.RecoveredAt)
		}
	}

	t := d.Tomorrow
	if t.PriorityHabit != "" || t.RiskWindow != "" || t.CommitmentToProbe != "" {
		s.WriteString("\nTOMORROW:\n")
		if t.PriorityHabit != "" {
			fmt.Fprintf(&s, "- Priority: %s\n", t.PriorityHabit)
		}
		if t.RiskWindow != "" {
			fmt.Fprintf(&s, "- Risk window: %s\n", t.RiskWindow)
		}
		if t.CommitmentToProbe != "" {
			fmt.Fprintf(&s, "- Check on: %q\n", t.CommitmentToProbe)
		}
	}
	if len(d.ActiveContradictions) > 0 {
		fmt.Fprintf(&s, "\nCONTRADICTION TO ADDRESS:\n- %s\n", d.ActiveContradictions[0].Description)
	}
	if k := knowledgeBlock(d.Base, 2, 1); k != "" {
		s.WriteString("\n" + k + "\n")
	}

	s.WriteString("\n---\nFORMAT:\n2-3 short paragraphs. Open with their name. Say what actually happened against what they intended, give one honest observation, and end with two questions: one to process today, one to set up tomorrow.\n\n")
	s.WriteString(QuestionGuidance(d.Base, d.QuestionFocus))
	s.WriteString(retryBlock(feedback))
	return s.String()
}

// LetterPrompt renders the weekly letter request.
func LetterPrompt(l *synthesis.Letter, feedback string) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Write a weekly letter for %s.\n\n", l.UserName)

	w := l.Week
	s.WriteString("WEEK SUMMARY:\n")
	fmt.Fprintf(&s, "- Completed: %d\n- Missed: %d\n- Rate: %d%%\n", w.TotalCompleted, w.TotalMissed, w.OverallRate)
	if w.BestDay != "" {
		fmt.Fprintf(&s, "- Best day: %s\n", w.BestDay)
	}
	if w.WorstDay != "" {
		fmt.Fprintf(&s, "- Worst day: %s\n", w.WorstDay)
	}
	fmt.Fprintf(&s, "- Trend: %s\n", w.Trend)

	c := l.WeekOverWeek
	s.WriteString("\nWEEK OVER WEEK:\n")
	fmt.Fprintf(&s, "- This week: %d%%\n- Last week: %d%%\n- Change: %+d%%\n- Reading: %s\n", c.ThisWeek, c.LastWeek, c.Change, c.Description)

	s.WriteString("\nARC:\n")
	fmt.Fprintf(&s, "- Phase: %s\n- Days in phase: %d\n- Days in system: %d\n", l.Phase, l.DaysInPhase, l.DaysInSystem)
	if len(l.Arc.MilestonesThisWeek) > 0 {
		fmt.Fprintf(&s, "- Milestones this week: %s\n", strings.Join(l.Arc.MilestonesThisWeek, ", "))
	}
	if l.Arc.NextMilestone != "" {
		fmt.Fprintf(&s, "- Next milestone: %s\n", l.Arc.NextMilestone)
	}
	if l.TruthToDeliver != "" {
		fmt.Fprintf(&s, "\nONE TRUTH TO DELIVER:\n%q\n", l.TruthToDeliver)
	}
	if l.NextWeekFocus != "" {
		fmt.Fprintf(&s, "\nNEXT WEEK FOCUS:\n%s\n", l.NextWeekFocus)
	}
	if k := knowledgeBlock(l.Base, 4, 1); k != "" {
		s.WriteString("\n" + k + "\n")
	}

	s.WriteString("\n---\nFORMAT:\n3-4 paragraphs, opening with their name:\n1. The week in specific numbers, not vague praise.\n2. One pattern or truth they need to hear.\n3. Where they are on the longer arc.\n4. One focus for next week and one question.\n")
	s.WriteString("\nTONE:\nThe weekly zoom-out. More reflective than the daily messages. Speak to who they are becoming.")
	s.WriteString(retryBlock(feedback))
	return s.String()
}

// ChatPrompt renders the chat reply request. Earlier turns travel
// separately as history.
func ChatPrompt(c *synthesis.Chat, message, feedback string) string {
	var s strings.Builder
	s.WriteString(DataContext(c.Base))

	s.WriteString("\n\nCONVERSATION:\n")
	fmt.Fprintf(&s, "- Emotional tone: %s\n", c.Conversation.EmotionalTone)
	if c.Conversation.TopicThread != "" {
		fmt.Fprintf(&s, "- Topic thread: %s\n", c.Conversation.TopicThread)
	}
	listBlock(&s, "THINGS TO BE CURIOUS ABOUT", c.Curiosities, 2, false)
	listBlock(&s, "PATTERNS YOU MAY SURFACE", c.PatternsToSurface, 2, false)
	var commitments []string
	for _, cm := range c.CommitmentsToCheck {
		commitments = append(commitments, cm.Text)
	}
	listBlock(&s, "COMMITMENTS TO CHECK ON", commitments, 2, true)

	var excuses []string
	for i, e := range c.Psychology.RecurringExcuses {
		if i == 3 {
			break
		}
		excuses = append(excuses, fmt.Sprintf("%q (used %dx)", e.Phrase, e.Frequency))
	}
	listBlock(&s, "RECURRING EXCUSES", excuses, 3, false)
	var narratives []string
	for _, n := range c.Psychology.LimitingNarratives {
		narratives = append(narratives, n.Narrative)
	}
	listBlock(&s, "LIMITING NARRATIVES", narratives, 2, true)

	fmt.Fprintf(&s, "\n---\nTHEIR MESSAGE:\n%q\n", message)
	s.WriteString("\n---\nREPLY AS THEIR FUTURE SELF:\n- Direct and warm\n- Specific data when it helps\n- If it is an excuse, name it, gently if they are shame-sensitive\n- If they want advice, give one clear action\n- If they are reflecting, go deeper with one question")
	s.WriteString(retryBlock(feedback))
	return s.String()
}

func listBlock(s *strings.Builder, title string, items []string, limit int, quote bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(s, "\n%s:\n", title)
	for i, it := range items {
		if i == limit {
			break
		}
		if quote {
			fmt.Fprintf(s, "- %q\n", it)
			continue
		}
		fmt.Fprintf(s, "- %s\n", it)
	}
}

func habitTitles(hs []synthesis.TodayHabit) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Title
	}
	return out
}

// TimeAgo renders t relative to now in coarse units.
func TimeAgo(t, now time.Time) string {
	hours := int(now.Sub(t).Hours())
	switch {
	case hours < 1:
		return "just now"
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case hours < 48:
		return "yesterday"
	}
	return fmt.Sprintf("%d days ago", hours/24)
}

// ExtractQuestions returns the sentences of text that are questions.
func ExtractQuestions(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		switch r {
		case '.', '!':
			start = i + 1
		case '?':
			if q := strings.TrimSpace(text[start : i+1]); q != "?" {
				out = append(out, q)
			}
			start = i + 1
		}
	}
	return out
}
