package intake

const (
	MsgWelcome = "Welcome to the HealthMentor Bot! 🏋️‍♂️\n\nPlease select your goal:\n1. Lose Fat\n2. Gain Muscle\n3. Maintain Weight"

	MsgAskWeight    = "What is your current weight (in kg)?"
	MsgAskHeight    = "What is your height (in cm)?"
	MsgAskFrequency = "How many times do you exercise per week?"

	MsgInvalidGoal      = "Please select a valid option: 1, 2, or 3."
	MsgInvalidWeight    = "Please enter a valid weight in kg (e.g., 60)."
	MsgInvalidHeight    = "Please enter a valid height in cm (e.g., 175)."
	MsgInvalidFrequency = "Please enter a valid number of times (e.g., 3)."

	MsgLoading          = "Recommendation is loading..."
	MsgGenerationFailed = "Sorry, I could not generate a recommendation at the moment. Please try again later."

	MsgNoSession = "Type /start to begin."
	MsgCancelled = "Cancelled. Type /start to begin again."
	MsgHelp      = "I will ask you four short questions about your goal, weight, height and training habits, then send a fitness and nutrition recommendation.\n\n/start - start over\n/cancel - stop the current questionnaire"
)
