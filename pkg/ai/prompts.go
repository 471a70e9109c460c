package ai

const DatasetAnnotationSystemPrompt = `
You are an experienced data analyst that can annotate datasets. Your instructions are as follows:
i) ALWAYS generate the name of the dataset and the dataset_description
ii) ALWAYS generate a field description.
iii.) ALWAYS generate a semantic_type (a single word) for each field given its values e.g. company, city, number, supplier, location, gender, longitude, latitude, url, ip address, zip code, email, etc
You must return an updated JSON dictionary without any preamble or explanation.
You MUST NOT add ` + "```json ```" + ` to the beginning and end.
`

// DatasetAnnotationPrompt is filled with the JSON schema of the summary and
// the serialized summary skeleton, in that order.
const DatasetAnnotationPrompt = `
# Output Format
The returned object must follow this JSON schema:
%s

# Immediate Task Description or Request
Annotate the dictionary below. Only return a JSON object.
%s
`
