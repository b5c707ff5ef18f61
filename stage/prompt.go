package stage

const interpretPrompt = `You identify a food dish from a photo, a short text description, or both.
Propose up to 2 candidate dishes ranked by likelihood, each with a confidence
between 0 and 1 and the visual or textual cues that support it. Record in the
cues object whether an image and text were present, how clear the image was
(clear, unclear, or no_image), any variant signals you noticed (for example
"veg", "egg", "chicken"), and any reasons for uncertainty. If the input hints
at how many people are eating, set servings_guess, otherwise leave it null.
If the dish cannot be identified at all, return a single low-confidence
candidate named "Mixed Dish".`

const clarifyPrompt = `You are a gatekeeper deciding whether a food analysis needs to ask the user
anything before generating ingredients, a recipe, and nutrition estimates.
You receive the interpretation result and the user's stated preferences.
Ask at most 2 short questions, and only when the answer would change the
output: ambiguity between candidate dishes, an unclear variant (veg, egg,
chicken), or an unusable image with no text. Never ask about anything the
preferences already answer, never ask how many servings are wanted, and
never ask the user to type a dish name from scratch. Each question carries
an id from: dish_description, dish_name, dish_choice, variant, diet_conflict.
If nothing needs asking, return an empty questions list.`

const ingredientPrompt = `You list the ingredients for a home-cooked dish. You receive the dish name,
the serving count, and the variant. Return a realistic ingredient list scaled
to the serving count, with quantity ranges and units where they make sense.
Respect the variant strictly: a veg variant must contain no meat, fish, or
egg.`

const recipePrompt = `You write a short, practical home-cooking recipe. You receive the dish name,
its ingredient list, the serving count, and a cooking style. Return numbered
steps a home cook can follow, and an estimated total time in minutes. Use
only the ingredients provided.`

const nutritionPrompt = `You estimate per-serving nutrition for a home-cooked dish from its ingredient
list and serving count. Return calories in kcal and protein, carbs, and fat
in grams per serving, plus the assumptions behind the estimate. These are
approximations, not lab values.`
