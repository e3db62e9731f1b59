package recognition

// labelScanPrompt is the shared prompt used by the vision model backends
const labelScanPrompt = `You are reading a photograph of a medication package or prescription label. Carefully read all printed text and extract the following information:

1. **Name**: The drug or product name as printed on the label, including strength if shown. Examples: "Amoxicillin 500 mg", "Lisinopril 10 mg".

2. **Code**: The National Drug Code (NDC) or other identifying product code printed on the label. Keep the digits and hyphens exactly as printed.

3. **Manufacturer**: The labeler or manufacturer name, if printed.

Return ONLY valid JSON in this exact format:
{
  "name": "Product Name",
  "code": "00000-0000-00",
  "manufacturer": "Manufacturer"
}

Important:
- If you cannot find a field, use null for that field
- Do not guess a code that is not visible on the label
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
